package enrich

// State 是单张图片处理状态机的状态。
type State int

const (
	StateResolveSlot State = iota
	StateFetch
	StateCacheCheck
	StateDetect
	StateGenerate
	StateWriteBack
	StateDone
	StateCached
	StateFailed
)

var stateNames = map[State]string{
	StateResolveSlot: "resolve_slot",
	StateFetch:       "fetch",
	StateCacheCheck:  "cache_check",
	StateDetect:      "detect",
	StateGenerate:    "generate",
	StateWriteBack:   "write_back",
	StateDone:        "done",
	StateCached:      "cached",
	StateFailed:      "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal 是否为终止状态。
func (s State) Terminal() bool {
	return s == StateDone || s == StateCached || s == StateFailed
}

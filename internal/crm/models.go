package crm

import "encoding/json"

// Field 是 dealFields 接口返回的字段元数据。
type Field struct {
	ID        int           `json:"id"`
	Key       string        `json:"key"`
	Name      string        `json:"name"`
	FieldType string        `json:"field_type"`
	Options   []FieldOption `json:"options"`
}

// FieldOption 是单选/多选字段的可选项。
type FieldOption struct {
	ID    json.Number `json:"id"`
	Label string      `json:"label"`
}

// Stage 表示销售管道中的阶段。
type Stage struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	PipelineID int    `json:"pipeline_id"`
}

type pagination struct {
	Start                 int  `json:"start"`
	Limit                 int  `json:"limit"`
	MoreItemsInCollection bool `json:"more_items_in_collection"`
	NextStart             int  `json:"next_start"`
}

type additionalData struct {
	Pagination pagination `json:"pagination"`
}

type envelope struct {
	Success        bool            `json:"success"`
	Error          string          `json:"error"`
	Data           json.RawMessage `json:"data"`
	AdditionalData additionalData  `json:"additional_data"`
}

type searchData struct {
	Items []struct {
		Item struct {
			ID json.Number `json:"id"`
		} `json:"item"`
	} `json:"items"`
}

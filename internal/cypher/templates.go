package cypher

import (
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

//go:embed *.cql
var files embed.FS

var parsed sync.Map

// MustTemplate 渲染指定模板，失败直接 panic。解析结果按文件名缓存。
func MustTemplate(name string, data any) string {
	tmpl, err := lookup(name)
	if err != nil {
		panic(err)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		panic(fmt.Errorf("execute template %s failed: %w", name, err))
	}
	return sb.String()
}

// MustAsset 返回模板原文。
func MustAsset(name string) string {
	b, err := files.ReadFile(name)
	if err != nil {
		panic(fmt.Errorf("load %s failed: %w", name, err))
	}
	return string(b)
}

func lookup(name string) (*template.Template, error) {
	if t, ok := parsed.Load(name); ok {
		return t.(*template.Template), nil
	}
	tmpl, err := template.New(name).Option("missingkey=error").ParseFS(files, name)
	if err != nil {
		return nil, fmt.Errorf("parse template %s failed: %w", name, err)
	}
	actual, _ := parsed.LoadOrStore(name, tmpl)
	return actual.(*template.Template), nil
}

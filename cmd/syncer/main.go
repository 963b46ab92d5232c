package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/CurlyBracesAI/RosieImageSync/internal/app"
	"github.com/CurlyBracesAI/RosieImageSync/internal/crm"
	"github.com/CurlyBracesAI/RosieImageSync/ioc"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(1)
	}

	cmd := flag.Arg(0)

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	logger, err := ioc.InitLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	client, err := ioc.InitCRMClient(cfg, logger)
	if err == nil && client == nil {
		err = crm.ErrNotConfigured
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "构建 CRM 客户端失败: %v\n", err)
		os.Exit(1)
	}

	switch cmd {
	case "sync":
		err = runSync(ctx, cfg, client, logger, flag.Args()[1:])
	case "fields":
		err = dumpFields(ctx, client)
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s 执行失败: %v\n", cmd, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("用法: syncer [-config configs/config.yaml] {sync [neighborhood...]|fields}")
}

func runSync(ctx context.Context, cfg app.Config, client crm.Client, logger *zap.Logger, neighborhoods []string) error {
	store, cleanup, err := ioc.InitMirrorStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()
	if store == nil {
		return fmt.Errorf("mirror store %s 未配置", cfg.Mirror.Store)
	}
	if len(neighborhoods) > 0 {
		cfg.Mirror.Neighborhoods = neighborhoods
	}
	svc := app.NewService(cfg, client, store, nil, logger)
	defer svc.Close(ctx)

	reports, err := svc.SyncConfigured(ctx)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(reports); encErr != nil {
		return encErr
	}
	return err
}

func dumpFields(ctx context.Context, client crm.Client) error {
	fields, err := client.ListDealFields(ctx)
	if err != nil {
		return err
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	for _, f := range fields {
		fmt.Printf("%-50s %-45s %-10s options=%d\n", f.Name, f.Key, f.FieldType, len(f.Options))
	}
	return nil
}

//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/CurlyBracesAI/RosieImageSync/ioc"
	"github.com/CurlyBracesAI/RosieImageSync/pkg/server"
)

func InitApp(ctx context.Context) (*server.HTTPServer, func(), error) {
	panic(wire.Build(
		ioc.InitConfig,
		ioc.InitLogger,
		ioc.InitCRMClient,
		ioc.InitFetcher,
		ioc.InitDetector,
		ioc.InitGenerator,
		ioc.InitOrchestrator,
		ioc.InitMatcher,
		ioc.InitMirrorStore,
		ioc.InitAppService,
		ioc.InitImagesHandler,
		ioc.InitSyncHandler,
		ioc.InitMatchHandler,
		ioc.InitGinEngine,
		ioc.InitScheduler,
		server.NewHTTPServer,
	))
}

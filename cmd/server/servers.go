package main

import (
	"context"
	"fmt"
	"net"

	"option-guide/src/config"
	datasource "option-guide/src/data_source"
	pb "option-guide/src/grpc_control"
	"option-guide/src/interfaces"
	"option-guide/src/logger"
	"option-guide/src/pricing"
	"option-guide/src/server"

	"google.golang.org/grpc"
)

// runningServers tracks what startServers launched.
type runningServers struct {
	http *server.Server
	grpc *grpc.Server
	errs chan error
}

// -----------------------------------------------------------------------------

// startServers orchestrates the startup of all server components
func startServers(
	srv *server.Server,
	multiSource *datasource.MultiSourceManager,
	contentProvider interfaces.IContentProvider,
	ref *pricing.ReferencePrice,
	config *config.Config,
	appLogger *logger.Logger,
) *runningServers {
	running := &runningServers{http: srv, errs: make(chan error, 2)}

	// 1. HTTP API and streams
	go func() {
		if err := srv.Start(); err != nil {
			running.errs <- fmt.Errorf("http: %w", err)
		}
	}()

	// 2. gRPC Control Server
	if config.GrpcPort == 0 {
		appLogger.Info("gRPC control server disabled")
		return running
	}
	addr := fmt.Sprintf("%s:%d", config.GrpcHost, config.GrpcPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		appLogger.Error("failed to listen for gRPC on %s: %v", addr, err)
		return running
	}
	grpcServer := grpc.NewServer()
	controlService := pb.NewControlService(ref, multiSource, contentProvider, srv, appLogger.Named("ControlService"))
	pb.RegisterControlServer(grpcServer, controlService)
	running.grpc = grpcServer

	go func() {
		appLogger.Info("Starting gRPC Control Server on %s", addr)
		if err := grpcServer.Serve(lis); err != nil {
			running.errs <- fmt.Errorf("grpc: %w", err)
		}
	}()
	return running
}

// -----------------------------------------------------------------------------

func (r *runningServers) stop(ctx context.Context, appLogger *logger.Logger) {
	if err := r.http.Shutdown(ctx); err != nil {
		appLogger.Error("HTTP shutdown: %v", err)
	}
	if r.grpc == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		r.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		r.grpc.Stop()
	}
}

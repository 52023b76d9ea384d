// Package service defines the seam to the host system collaborator. The
// actual OS-specific implementations (shell-outs for reboot, metric
// collection) live outside this core and are injected at wiring time.
package service

import "context"

// Result is the structured outcome of a system action.
type Result struct {
	Success bool
	Message string
}

// SystemInfo is a point-in-time snapshot of host metrics, pre-rendered by
// the collaborator.
type SystemInfo struct {
	CPU      string
	Memory   string
	Disk     string
	Uptime   string
	Platform string
}

// Controller performs privileged host operations on behalf of the bot.
type Controller interface {
	Reboot(ctx context.Context) (Result, error)
	Info(ctx context.Context) (SystemInfo, error)
}

// Unsupported is a Controller for hosts where system commands are not
// available. Every action reports failure without error.
type Unsupported struct{}

func (Unsupported) Reboot(ctx context.Context) (Result, error) {
	return Result{Success: false, Message: "comandos de sistema no disponibles en este host"}, nil
}

func (Unsupported) Info(ctx context.Context) (SystemInfo, error) {
	return SystemInfo{Platform: "unsupported"}, nil
}

// Ensure interface compliance.
var _ Controller = Unsupported{}

package sumo

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/coolport/thesis/environment/envconfig"
	"github.com/coolport/thesis/environment/sumo/traci"
)

// Client is the subset of the TraCI protocol used by the Adapter
type Client interface {
	Version() (int, string, error)
	Load(args []string) error
	SimulationStep() error
	Time() (float64, error)
	LaneHaltingNumber(laneID string) (int, error)
	LaneWaitingTime(laneID string) (float64, error)
	Phase(tlsID string) (int, error)
	SetPhase(tlsID string, phase int) error
	InductionLoopVehicleNumber(loopID string) (int, error)
	Close() error
}

// Process is a running simulator process
type Process interface {
	// Terminate stops the process and waits for it to exit
	Terminate() error
}

// Launcher starts the simulator binary with the given arguments
type Launcher func(binary string, args ...string) (Process, error)

// Dialer opens a TraCI connection to the simulator
type Dialer func(ctx context.Context, addr string) (Client, error)

// DialTraCI dials the simulator over TCP
func DialTraCI(ctx context.Context, addr string) (Client, error) {
	conn, err := traci.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type process struct {
	cmd *exec.Cmd
}

// Exec launches the simulator as a child process that shares the
// current process's stderr
func Exec(binary string, args ...string) (Process, error) {
	cmd := exec.Command(binary, args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &process{cmd}, nil
}

func (p *process) Terminate() error {
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		if kerr := p.cmd.Process.Kill(); kerr != nil {
			return kerr
		}
	}

	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Exiting because of the signal is the expected outcome
		return nil
	}
	return err
}

// Binary returns the simulator binary to launch for a configuration. The
// binary is resolved under $SUMO_HOME/bin when SUMO_HOME is set.
func Binary(c envconfig.Config, getenv func(string) string) string {
	if c.Binary != "" {
		return c.Binary
	}

	name := "sumo"
	if c.GUI {
		name = "sumo-gui"
	}
	if home := getenv("SUMO_HOME"); home != "" {
		return filepath.Join(home, "bin", name)
	}
	return name
}

// Package traci implements a client of the SUMO TraCI command/query protocol
// over TCP. Only the commands needed to control a single signalized
// intersection are supported.
package traci

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
)

// Command identifiers
const (
	cmdGetVersion   byte = 0x00
	cmdLoad         byte = 0x01
	cmdSimStep      byte = 0x02
	cmdClose        byte = 0x7f
	cmdGetInduction byte = 0xa0
	cmdGetTLS       byte = 0xa2
	cmdGetLane      byte = 0xa3
	cmdGetSim       byte = 0xab
	cmdSetTLS       byte = 0xc2

	responseOffset byte = 0x10
)

// Variable identifiers
const (
	varVehicleNumber byte = 0x10
	varHaltingNumber byte = 0x14
	varPhaseIndex    byte = 0x22
	varCurrentPhase  byte = 0x28
	varTime          byte = 0x66
	varWaitingTime   byte = 0x7a
)

// Type tags
const (
	typeInteger    byte = 0x09
	typeDouble     byte = 0x0b
	typeString     byte = 0x0c
	typeStringList byte = 0x0e
)

const (
	resultOK             byte = 0x00
	resultNotImplemented byte = 0x01
	resultError          byte = 0xff
)

// CommandError is returned when the simulator answers a command with a
// non-OK status
type CommandError struct {
	Command     byte
	Result      byte
	Description string
}

func (c *CommandError) Error() string {
	return fmt.Sprintf("traci: command 0x%02x failed with status 0x%02x: %v",
		c.Command, c.Result, c.Description)
}

// IsCommandError returns whether err was a non-OK command status
func IsCommandError(err error) bool {
	var target *CommandError
	return errors.As(err, &target)
}

// Conn is a TraCI connection. Commands are executed one at a time, each
// waiting for its response.
type Conn struct {
	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

// Dial connects to a TraCI server
func Dial(ctx context.Context, addr string) (*Conn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewConn(c), nil
}

// NewConn returns a TraCI connection over an established network connection
func NewConn(c net.Conn) *Conn {
	return &Conn{conn: c}
}

// roundTrip sends a single command and returns a reader positioned after
// the command's status response
func (c *Conn) roundTrip(id byte, payload []byte) (*reader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, net.ErrClosed
	}

	var cmd storage
	cmd.command(id, payload)
	if _, err := c.conn.Write(message(cmd.Bytes())); err != nil {
		return nil, fmt.Errorf("traci: send command 0x%02x: %w", id, err)
	}

	var header [4]byte
	if _, err := io.ReadFull(c.conn, header[:]); err != nil {
		return nil, fmt.Errorf("traci: read response to 0x%02x: %w", id, err)
	}
	length := int(newReader(header[:]).int32())
	if length < 4 {
		return nil, fmt.Errorf("traci: invalid response length %d", length)
	}
	body := make([]byte, length-4)
	if _, err := io.ReadFull(c.conn, body); err != nil {
		return nil, fmt.Errorf("traci: read response to 0x%02x: %w", id, err)
	}

	r := newReader(body)
	if err := r.status(id); err != nil {
		return nil, err
	}
	return r, nil
}

// get executes a variable query and returns a reader positioned at the
// typed value of the response
func (c *Conn) get(cmd, variable byte, objectID string, valueType byte) (*reader, error) {
	var payload storage
	payload.ubyte(variable)
	payload.str(objectID)

	r, err := c.roundTrip(cmd, payload.Bytes())
	if err != nil {
		return nil, err
	}

	r.commandEnd()
	response := r.ubyte()
	gotVar := r.ubyte()
	gotID := r.str()
	if r.err != nil {
		return nil, r.err
	}
	if response != cmd+responseOffset || gotVar != variable || gotID != objectID {
		return nil, fmt.Errorf("traci: unexpected response 0x%02x/0x%02x/%q to "+
			"query 0x%02x/0x%02x/%q", response, gotVar, gotID, cmd, variable,
			objectID)
	}
	if err := r.typed(valueType); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Conn) getInt(cmd, variable byte, objectID string) (int, error) {
	r, err := c.get(cmd, variable, objectID, typeInteger)
	if err != nil {
		return 0, err
	}
	v := r.int32()
	return int(v), r.err
}

func (c *Conn) getDouble(cmd, variable byte, objectID string) (float64, error) {
	r, err := c.get(cmd, variable, objectID, typeDouble)
	if err != nil {
		return 0, err
	}
	v := r.double()
	return v, r.err
}

// Version returns the TraCI API version and the simulator identifier
func (c *Conn) Version() (int, string, error) {
	r, err := c.roundTrip(cmdGetVersion, nil)
	if err != nil {
		return 0, "", err
	}

	r.commandEnd()
	if id := r.ubyte(); r.err == nil && id != cmdGetVersion {
		return 0, "", fmt.Errorf("traci: unexpected version response 0x%02x", id)
	}
	api := r.int32()
	ident := r.str()
	return int(api), ident, r.err
}

// Load restarts the simulation with the given simulator arguments
func (c *Conn) Load(args []string) error {
	var payload storage
	payload.ubyte(typeStringList)
	payload.strList(args)

	_, err := c.roundTrip(cmdLoad, payload.Bytes())
	return err
}

// SimulationStep advances the simulation by a single tick and waits for
// the simulator to finish it
func (c *Conn) SimulationStep() error {
	var payload storage
	payload.double(0)

	_, err := c.roundTrip(cmdSimStep, payload.Bytes())
	return err
}

// Time returns the current simulated time in seconds
func (c *Conn) Time() (float64, error) {
	return c.getDouble(cmdGetSim, varTime, "")
}

// LaneHaltingNumber returns the number of halted vehicles on a lane during
// the last tick
func (c *Conn) LaneHaltingNumber(laneID string) (int, error) {
	return c.getInt(cmdGetLane, varHaltingNumber, laneID)
}

// LaneWaitingTime returns the total waiting time of vehicles on a lane
func (c *Conn) LaneWaitingTime(laneID string) (float64, error) {
	return c.getDouble(cmdGetLane, varWaitingTime, laneID)
}

// Phase returns the current phase index of a traffic light
func (c *Conn) Phase(tlsID string) (int, error) {
	return c.getInt(cmdGetTLS, varCurrentPhase, tlsID)
}

// SetPhase switches a traffic light to the given phase index
func (c *Conn) SetPhase(tlsID string, phase int) error {
	var payload storage
	payload.ubyte(varPhaseIndex)
	payload.str(tlsID)
	payload.ubyte(typeInteger)
	payload.int32(int32(phase))

	_, err := c.roundTrip(cmdSetTLS, payload.Bytes())
	return err
}

// InductionLoopVehicleNumber returns the number of vehicles that passed an
// induction loop during the last tick
func (c *Conn) InductionLoopVehicleNumber(loopID string) (int, error) {
	return c.getInt(cmdGetInduction, varVehicleNumber, loopID)
}

// Close asks the simulator to shut down and closes the connection. Calling
// Close more than once is a no-op.
func (c *Conn) Close() error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil
	}

	_, err := c.roundTrip(cmdClose, nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

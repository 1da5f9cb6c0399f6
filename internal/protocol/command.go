package protocol

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Command names understood by the firmware.
const (
	CommandPing         = "PING"
	CommandLock         = "LOCK"
	CommandUnlock       = "UNLOCK"
	CommandLockdown     = "LOCKDOWN"
	CommandReboot       = "REBOOT"
	CommandUpdateConfig = "update_config"
)

// Command is one control message for a device. Key and Value are only
// sent for update_config.
type Command struct {
	Name  string
	Key   string
	Value string
}

// NewCommand builds a plain command such as PING or LOCK.
func NewCommand(name string) Command {
	return Command{Name: name}
}

// NewConfigCommand builds an update_config command for one setting.
func NewConfigCommand(key, value string) Command {
	return Command{Name: CommandUpdateConfig, Key: key, Value: value}
}

type (
	plainCommandWire struct {
		Command string `cbor:"command"`
	}

	configCommandWire struct {
		Command string `cbor:"command"`
		Key     string `cbor:"key"`
		Value   string `cbor:"value"`
	}
)

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("protocol: building CBOR encode mode: %v", err))
	}
}

// EncodeCommand serialises cmd as a CBOR map.
func EncodeCommand(cmd Command) ([]byte, error) {
	if cmd.Name == "" {
		return nil, fmt.Errorf("%w: empty command name", ErrInvalidCommand)
	}

	var v any = plainCommandWire{Command: cmd.Name}
	if cmd.Name == CommandUpdateConfig {
		if cmd.Key == "" {
			return nil, fmt.Errorf("%w: update_config without key", ErrInvalidCommand)
		}
		// An empty value is legal (wifi_pass keeps its current setting).
		v = configCommandWire{Command: cmd.Name, Key: cmd.Key, Value: cmd.Value}
	}

	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	return data, nil
}

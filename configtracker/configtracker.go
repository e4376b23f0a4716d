// Package configtracker implements the channel/gain config grammar
// shared by the serial EEG board family (spec component C8): the
// "xCPGIBBX"-style per-channel command string OpenBCI/DawnEEG boards
// accept, validated and applied without touching the transport, with a
// one-level undo back to the gains in effect before the last successful
// apply.
package configtracker

const (
	defaultGain       = 24
	maxChannels       = 32
	singleCommandSize = 9 // 'x' + channel + power + gain + input + bias + srb2 + srb1 + 'X'
)

// Result classifies what ApplyConfig found in a config string.
type Result int

const (
	// NotChannelCommand means the string contained no recognizable
	// per-channel command (and was not the single-character "d" reset);
	// current_gains is unchanged.
	NotChannelCommand Result = iota
	// ValidCommand means at least one channel command was applied.
	ValidCommand
	// InvalidCommand means a channel command was recognized by shape but
	// failed a field-level validation check; current_gains is unchanged
	// for the command that failed, but any commands already applied
	// earlier in the same string remain applied.
	InvalidCommand
)

// channelLetters maps a wire channel letter to its 0-based gain-slot
// index, in the exact order the OpenBCI/DawnEEG command grammar assigns
// them across four banks of 8.
var channelLetters = []byte(
	"12345678" + // channels 1-8
		"QWERTYUI" + // channels 9-16
		"ASDFGHJK" + // channels 17-24
		"ZXCVBNML", // channels 25-32
)

var availableGainValues = [7]int{1, 2, 4, 6, 8, 12, 24}

// Tracker holds the current and previous per-channel gain settings for
// up to 32 channels, and validates/applies the channel command grammar
// against them.
type Tracker struct {
	currentGains [maxChannels]int
	oldGains     [maxChannels]int
}

// NewTracker constructs a tracker with every channel defaulted to 24x
// gain, the ADS1299's default PGA setting.
func NewTracker() *Tracker {
	t := &Tracker{}
	for i := range t.currentGains {
		t.currentGains[i] = defaultGain
		t.oldGains[i] = defaultGain
	}
	return t
}

// ApplyConfig parses config for either the single-character reset
// command "d" or a concatenation of 9-byte channel commands
// ('x'+6 fields+'X'), applying each in turn. The first invalid command
// stops processing and is reported; commands already applied earlier in
// the same string are not rolled back by this call alone — the caller
// uses RevertConfig for that, mirroring how the original only calls
// revert_config from the board's own config_board error path, one level
// of undo per accepted write.
func (t *Tracker) ApplyConfig(config string) Result {
	if len(config) == 1 {
		if config[0] == 'd' {
			t.oldGains = t.currentGains
			for i := range t.currentGains {
				t.currentGains[i] = defaultGain
			}
			return ValidCommand
		}
	}

	snapshot := t.currentGains
	result := NotChannelCommand
	for i := 0; i < len(config); {
		if config[i] != 'x' {
			i++
			continue
		}
		if i+singleCommandSize > len(config) || config[i+singleCommandSize-1] != 'X' {
			i++
			continue
		}
		result = t.applySingleCommand(config[i : i+singleCommandSize])
		if result != ValidCommand {
			return result
		}
		t.oldGains = snapshot
		i += singleCommandSize
	}
	return result
}

// applySingleCommand validates and applies one 9-byte channel command:
// x CHANNEL POWER GAIN INPUT_TYPE BIAS SRB2 SRB1 X
func (t *Tracker) applySingleCommand(command string) Result {
	if len(command) < singleCommandSize || command[0] != 'x' || command[singleCommandSize-1] != 'X' {
		return NotChannelCommand
	}
	if command[5] != '0' && command[5] != '1' {
		return InvalidCommand
	}
	if command[6] != '0' && command[6] != '1' {
		return InvalidCommand
	}
	if command[7] != '0' && command[7] != '1' {
		return InvalidCommand
	}
	if command[4] < '0' || command[4] > '7' {
		return InvalidCommand
	}
	if command[3] < '0' || command[3] > '6' {
		return InvalidCommand
	}
	if command[2] != '0' && command[2] != '1' {
		return InvalidCommand
	}

	index := -1
	for i, letter := range channelLetters {
		if letter == command[1] {
			index = i
			break
		}
	}
	if index < 0 || index >= len(t.currentGains) {
		return InvalidCommand
	}

	t.currentGains[index] = availableGainValues[command[3]-'0']
	return ValidCommand
}

// GainForChannel returns the current gain multiplier for channel (a
// 0-based index), or 1 if channel is out of range.
func (t *Tracker) GainForChannel(channel int) int {
	if channel < 0 || channel >= len(t.currentGains) {
		return 1
	}
	return t.currentGains[channel]
}

// RevertConfig restores every channel's gain to what it was before the
// most recent successful ApplyConfig call.
func (t *Tracker) RevertConfig() {
	t.currentGains = t.oldGains
}

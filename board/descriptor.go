package board

// ID identifies a board family in the static descriptor table. Values are
// stable once assigned — a binding consumer may persist them.
type ID int

const (
	CytonID     ID = 1 // OpenBCI-lineage 8-channel serial EEG board
	DawnEEGID   ID = 2 // DawnScene serial EEG board (footer/aux layout variant)
	GanglionID  ID = 3 // OpenBCI-lineage 4-channel compressed BLE EEG board
	WifiID      ID = 4 // Cyton-Wifi variant: same frame family over UDP
	GForceID    ID = 5 // oymotion gForce Pro EMG armband (vendor SDK, single instance)
	BTClassicID ID = 6 // NeuroMD Callibri-family EMG sensor over Bluetooth Classic RFCOMM
	ANTNeuroID  ID = 7 // ANT Neuro amplifier family (vendor factory enumeration)
)

// PresetSchema describes the fixed shape of one preset's sample row: how
// many rows (num_rows) it has and which row indices carry which semantic
// role. An index of -1 means the role is absent for this preset.
type PresetSchema struct {
	Name                string
	NumRows             int
	SamplingRate        float64
	PackageNumChannel   int
	TimestampChannel    int
	MarkerChannel       int
	EEGChannels         []int
	EMGChannels         []int
	ECGChannels         []int
	AccelChannels       []int
	AnalogChannels      []int
	ResistanceChannels  []int
	TemperatureChannels []int
	BatteryChannels     []int
	OtherChannels       []int
}

// Descriptor is the static, read-only schema for one board-id: which
// presets it supports and the row layout of each.
type Descriptor struct {
	ID      ID
	Name    string
	Presets map[Preset]PresetSchema
}

// Preset returns the schema for preset, and whether this board supports it.
func (d Descriptor) Preset(p Preset) (PresetSchema, bool) {
	s, ok := d.Presets[p]
	return s, ok
}

// Descriptors is the static board-id -> Descriptor table every driver
// constructor and the registry's factory dispatch consult. It is built
// once at package init and never mutated afterward.
var Descriptors = map[ID]Descriptor{
	CytonID: {
		ID:   CytonID,
		Name: "cyton",
		Presets: map[Preset]PresetSchema{
			PresetDefault: {
				Name:              "default",
				NumRows:           24,
				SamplingRate:      250,
				PackageNumChannel: 0,
				EEGChannels:       []int{1, 2, 3, 4, 5, 6, 7, 8},
				AccelChannels:     []int{9, 10, 11},
				AnalogChannels:    []int{12, 13, 14},
				OtherChannels:     []int{15, 16, 17, 18, 19, 20, 21}, // footer byte + 6 raw aux bytes
				TimestampChannel:  22,
				MarkerChannel:     23,
			},
		},
	},
	DawnEEGID: {
		ID:   DawnEEGID,
		Name: "dawneeg",
		Presets: map[Preset]PresetSchema{
			PresetDefault: {
				Name:              "default",
				NumRows:           13,
				SamplingRate:      250,
				PackageNumChannel: 0,
				EEGChannels:       []int{1, 2, 3, 4, 5, 6, 7, 8},
				OtherChannels:     []int{9, 10}, // trigger1, trigger2 — see DESIGN.md open question (c)
				TimestampChannel:  11,
				MarkerChannel:     12,
			},
			PresetAuxiliary: {
				Name:                "auxiliary",
				NumRows:             5,
				SamplingRate:        250.0 / 8,
				PackageNumChannel:   0,
				TemperatureChannels: []int{1},
				BatteryChannels:     []int{2},
				TimestampChannel:    3,
				MarkerChannel:       4,
			},
		},
	},
	GanglionID: {
		ID:   GanglionID,
		Name: "ganglion",
		Presets: map[Preset]PresetSchema{
			PresetDefault: {
				Name:               "default",
				NumRows:            15,
				SamplingRate:       200,
				PackageNumChannel:  0,
				EEGChannels:        []int{1, 2, 3, 4},
				AccelChannels:      []int{5, 6, 7},
				ResistanceChannels: []int{8, 9, 10, 11, 12}, // first, second, third, fourth, reference
				TimestampChannel:   13,
				MarkerChannel:      14,
			},
		},
	},
	WifiID: {
		ID:   WifiID,
		Name: "cyton-wifi",
		Presets: map[Preset]PresetSchema{
			PresetDefault: {
				Name:              "default",
				NumRows:           24,
				SamplingRate:      250,
				PackageNumChannel: 0,
				EEGChannels:       []int{1, 2, 3, 4, 5, 6, 7, 8},
				AccelChannels:     []int{9, 10, 11},
				AnalogChannels:    []int{12, 13, 14}, // footer byte selects which of accel/analog is populated
				OtherChannels:     []int{15, 16, 17, 18, 19, 20, 21},
				TimestampChannel:  22,
				MarkerChannel:     23,
			},
		},
	},
	GForceID: {
		ID:   GForceID,
		Name: "gforce_pro",
		Presets: map[Preset]PresetSchema{
			PresetDefault: {
				Name:              "default",
				NumRows:           11,
				SamplingRate:      500,
				PackageNumChannel: 0,
				EMGChannels:       []int{1, 2, 3, 4, 5, 6, 7, 8},
				TimestampChannel:  9,
				MarkerChannel:     10,
			},
		},
	},
	BTClassicID: {
		ID:   BTClassicID,
		Name: "callibri_emg",
		Presets: map[Preset]PresetSchema{
			PresetDefault: {
				Name:              "default",
				NumRows:           5,
				SamplingRate:      1000,
				PackageNumChannel: 0,
				EMGChannels:       []int{1},
				OtherChannels:     []int{2},
				TimestampChannel:  3,
				MarkerChannel:     4,
			},
		},
	},
	ANTNeuroID: {
		ID:   ANTNeuroID,
		Name: "ant_neuro",
		Presets: map[Preset]PresetSchema{
			PresetDefault: {
				Name:              "default",
				NumRows:           16,
				SamplingRate:      1024,
				PackageNumChannel: 0,
				EEGChannels:       []int{1, 2, 3, 4, 5, 6, 7, 8},
				EMGChannels:       []int{9, 10, 11, 12},
				OtherChannels:     []int{13},
				TimestampChannel:  14,
				MarkerChannel:     15,
			},
		},
	},
}

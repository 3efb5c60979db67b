package midi

// Kit maps sample identifiers to the MIDI notes of one drum machine.
type Kit struct {
	Name  string
	Notes map[string]uint8
}

// DefaultKit is the kit used when the configured name is unknown.
const DefaultKit = "gm"

// Kits contains the built-in drum kit mappings.
var Kits = map[string]Kit{
	"gm": {
		Name: "General MIDI",
		Notes: map[string]uint8{
			"kick":     36,
			"snare":    38,
			"clhat":    42,
			"ophat":    46,
			"lowtom":   41,
			"midtom":   43,
			"hitom":    45,
			"crash":    49,
			"ride":     51,
			"clap":     39,
			"rim":      37,
			"cowbell":  56,
			"clave":    75,
			"maracas":  70,
			"lowconga": 64,
			"hiconga":  63,
		},
	},
	"rd8": {
		Name: "Behringer RD-8",
		Notes: map[string]uint8{
			"kick":     36,
			"snare":    40, // RD-8 uses 40, not 38
			"clhat":    42,
			"ophat":    46,
			"lowtom":   45,
			"midtom":   48,
			"hitom":    50,
			"crash":    49,
			"ride":     51,
			"clap":     39,
			"rim":      37,
			"cowbell":  56,
			"clave":    75,
			"maracas":  70,
			"lowconga": 64,
			"hiconga":  63,
		},
	},
	"tr8s": {
		Name: "Roland TR-8S",
		Notes: map[string]uint8{
			"kick":     36,
			"snare":    38,
			"clhat":    42,
			"ophat":    46,
			"lowtom":   41,
			"midtom":   43,
			"hitom":    45,
			"crash":    49,
			"ride":     51,
			"clap":     39,
			"rim":      37,
			"cowbell":  56,
			"clave":    75,
			"maracas":  70,
			"lowconga": 62,
			"hiconga":  63,
		},
	},
	"er1": {
		Name: "Korg ER-1",
		Notes: map[string]uint8{
			"kick":  36, // Perc Synth 1
			"snare": 38, // Perc Synth 2
			"clhat": 42,
			"ophat": 46,
			"lowtom": 40, // Perc Synth 3
			"midtom": 41, // Perc Synth 4
			"crash":  49,
			"clap":   39,
		},
	},
}

// KitNames returns the available kit names in a stable order.
func KitNames() []string {
	return []string{"gm", "rd8", "tr8s", "er1"}
}

// GetKit returns a kit by name, defaulting to GM if not found.
func GetKit(name string) Kit {
	if kit, ok := Kits[name]; ok {
		return kit
	}
	return Kits[DefaultKit]
}

// Package style maps named visual presets to ffmpeg filter graphs.
// The table is fixed at build time and the lookup is total: identifiers that
// are not in the table resolve to the grayscale profile instead of failing.
package style

// ID identifies a style preset as sent by clients in the "style" form field.
type ID string

const (
	// Pixel downsamples by 8 and scales back with nearest-neighbor sampling.
	Pixel ID = "pixel"
	// Cartoon approximates a cartoon look with edge detection and boosted saturation.
	Cartoon ID = "cartoon"
	// Grayscale drops chroma. It is also the fallback for unknown identifiers.
	Grayscale ID = "grayscale"
)

// Default is the style applied when an identifier is not in the table.
const Default = Grayscale

// Profile is an immutable pairing of a style identifier and its filter graph.
type Profile struct {
	// ID is the resolved style. For unknown input this is Default, not the input.
	ID ID
	// FilterSpec is passed verbatim to ffmpeg's -vf option.
	FilterSpec string
	// Fallback is true when the requested identifier was unknown.
	Fallback bool
}

var profiles = map[ID]string{
	Pixel:     "scale=iw/8:-1,scale=iw*8:ih*8:flags=neighbor",
	Cartoon:   "edgedetect=low=0.1:high=0.4,eq=saturation=2",
	Grayscale: "format=gray",
}

// Resolve returns the profile for id. It never fails; identifiers outside the
// table yield the Default profile with Fallback set. Matching is exact, so
// "PIXEL" or " pixel " are unknown.
func Resolve(id ID) Profile {
	if spec, ok := profiles[id]; ok {
		return Profile{ID: id, FilterSpec: spec}
	}
	return Profile{ID: Default, FilterSpec: profiles[Default], Fallback: true}
}

// IsKnown reports whether id has its own entry in the table.
func IsKnown(id ID) bool {
	return !Resolve(id).Fallback
}

// Known returns every style in the table, in a stable order.
func Known() []ID {
	return []ID{Pixel, Cartoon, Grayscale}
}

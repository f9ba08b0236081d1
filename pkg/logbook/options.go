package logbook

// Defaults for SavePlot.
const (
	DefaultDPI    = 200
	DefaultFormat = "png"
)

// SaveOption adjusts a single persistence call.
type SaveOption func(*saveOptions)

type saveOptions struct {
	category     string
	uncompressed bool
	formats      []string
	dpi          int
}

func applyOptions(opts []SaveOption) saveOptions {
	o := saveOptions{formats: []string{DefaultFormat}, dpi: DefaultDPI}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// InCategory redirects the file into <run>/<category>, created on demand,
// instead of the operation's default subdirectory.
func InCategory(category string) SaveOption {
	return func(o *saveOptions) { o.category = category }
}

// Uncompressed stores bundle members without deflate compression.
func Uncompressed() SaveOption {
	return func(o *saveOptions) { o.uncompressed = true }
}

// WithFormats sets the file extensions SavePlot exports, e.g. "png", "pdf".
func WithFormats(formats ...string) SaveOption {
	return func(o *saveOptions) {
		if len(formats) > 0 {
			o.formats = formats
		}
	}
}

// WithDPI sets the raster resolution passed to the figure.
func WithDPI(dpi int) SaveOption {
	return func(o *saveOptions) {
		if dpi > 0 {
			o.dpi = dpi
		}
	}
}

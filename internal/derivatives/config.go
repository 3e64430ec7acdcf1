package derivatives

import "os"

// Settings persistence policies for OCR derivation. PersistAlways matches
// the reference behavior of recording language/preprocess even when half
// the run failed; PersistOnSuccess only records them after a full success.
const (
	PersistAlways    = "always"
	PersistOnSuccess = "on-success"
)

// Config carries the external-binary paths and policy knobs for the
// derivative pipelines. It is threaded explicitly into each pipeline;
// nothing reads process-wide state mid-run.
type Config struct {
	// ConvertPath is the image conversion binary (ImageMagick convert)
	ConvertPath string

	// PDFMergePath is the PDF merge binary (Ghostscript)
	PDFMergePath string

	// TesseractPath is the OCR binary
	TesseractPath string

	// EnabledKinds limits which derivative kinds may be generated.
	// Empty means all kinds.
	EnabledKinds []Kind

	// SettingsPersistence controls whether OCR settings are recorded on
	// partial failure. One of PersistAlways (default) or PersistOnSuccess.
	SettingsPersistence string

	// TempDir is where sources and tool outputs are staged
	TempDir string
}

// WithDefaults fills in default values for unset fields
func (c *Config) WithDefaults() {
	if c.ConvertPath == "" {
		c.ConvertPath = "convert"
	}
	if c.PDFMergePath == "" {
		c.PDFMergePath = "gs"
	}
	if c.TesseractPath == "" {
		c.TesseractPath = "tesseract"
	}
	if c.SettingsPersistence == "" {
		c.SettingsPersistence = PersistAlways
	}
	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}
}

// Enabled reports whether the kind may be generated under this config
func (c *Config) Enabled(k Kind) bool {
	if len(c.EnabledKinds) == 0 {
		return true
	}
	for _, enabled := range c.EnabledKinds {
		if enabled == k {
			return true
		}
	}
	return false
}

// BinaryFor returns the configured binary path for a capability class
func (c *Config) BinaryFor(cap Capability) string {
	switch cap {
	case CapabilityOCR:
		return c.TesseractPath
	default:
		// Image and PDF derivation both go through the conversion binary;
		// PDFMergePath is only used for combining.
		return c.ConvertPath
	}
}

package renderdev

import (
	"fmt"
	"image/png"
	"os"
)

// writeScreenshot reads the backbuffer through the executor and writes it
// as a PNG. Render goroutine only, called from the present path.
func (d *Device) writeScreenshot(filename string) error {
	img, err := d.exec.ReadBackbuffer()
	if err != nil {
		return fmt.Errorf("read backbuffer: %w", err)
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create %s: %w", filename, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", filename, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filename, err)
	}
	return nil
}

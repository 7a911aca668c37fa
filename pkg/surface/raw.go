package surface

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"

	"segmesh/internal/models"
)

// ReadRaw reads a headerless volume of one unsigned byte per voxel, x fastest
// then y then z, as written by most segmentation tools' raw export
func ReadRaw(r io.Reader, width, height, depth int) (*models.LabelVolume, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return nil, errors.Errorf("invalid volume dimensions %dx%dx%d", width, height, depth)
	}
	buf := make([]byte, width*height*depth)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrapf(err, "reading %dx%dx%d label volume", width, height, depth)
	}

	vol := models.NewLabelVolume(width, height, depth)
	for i, b := range buf {
		vol.Data[i] = int(b)
	}
	return vol, nil
}

// LoadRaw reads a raw label volume file
func LoadRaw(filename string, width, height, depth int) (*models.LabelVolume, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "opening label volume")
	}
	defer file.Close()
	return ReadRaw(bufio.NewReader(file), width, height, depth)
}

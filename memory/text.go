package memory

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// TextFiles stores every neuron in its own text file inside Dir: the bias on
// the first line, then one weight per line.
type TextFiles struct {
	Dir string
}

// NewTextFiles returns a store rooted at dir, creating the directory.
func NewTextFiles(dir string) (*TextFiles, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "can't create memory directory %s", dir)
	}
	return &TextFiles{Dir: dir}, nil
}

func (s *TextFiles) path(layer, neuron int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("layer%d_neuron%d.txt", layer, neuron))
}

func (s *TextFiles) SaveWeights(layer, neuron int, weights []float64, bias float64) error {
	name := s.path(layer, neuron)
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrapf(err, "can't save neuron memory, couldn't create file %s", name)
	}

	w := bufio.NewWriter(f)
	w.WriteString(strconv.FormatFloat(bias, 'g', -1, 64) + "\n")
	for _, weight := range weights {
		w.WriteString(strconv.FormatFloat(weight, 'g', -1, 64) + "\n")
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", name)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", name)
	}
	return nil
}

func (s *TextFiles) LoadWeights(layer, neuron int) ([]float64, float64, error) {
	name := s.path(layer, neuron)
	f, err := os.Open(name)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "can't load neuron memory from %s", name)
	}
	defer f.Close()

	var values []float64
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "%s:%d", name, line)
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, errors.Wrapf(err, "reading %s", name)
	}
	if len(values) == 0 {
		return nil, 0, errors.Errorf("%s holds no bias", name)
	}
	return values[1:], values[0], nil
}

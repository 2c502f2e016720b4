package blocks

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// BlockSpec is the on-disk form of a block. SizeEstimate is optional and is
// measured from the content when absent.
type BlockSpec struct {
	Content      string         `yaml:"content"`
	Priority     float64        `yaml:"priority"`
	Source       string         `yaml:"source"`
	SizeEstimate *int           `yaml:"size_estimate"`
	Metadata     map[string]any `yaml:"metadata"`
	Section      string         `yaml:"section"`
	Timestamp    *float64       `yaml:"timestamp"`
}

// RequestSpec is the on-disk form of a selection request. JSON documents
// are accepted as well since they are valid YAML.
type RequestSpec struct {
	Label             string      `yaml:"label"`
	MaxTokens         int         `yaml:"max_tokens"`
	Strategy          string      `yaml:"strategy"`
	PreserveStructure *bool       `yaml:"preserve_structure"`
	TimeoutMs         int         `yaml:"timeout_ms"`
	Blocks            []BlockSpec `yaml:"blocks"`
}

// BatchSpec is a file holding several requests.
type BatchSpec struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	Requests      []RequestSpec `yaml:"requests"`
}

// ToBlocks converts the specs, measuring sizes with counter where missing.
func ToBlocks(specs []BlockSpec, counter Counter) []Block {
	if counter == nil {
		counter = HeuristicCounter{}
	}
	out := make([]Block, 0, len(specs))
	for _, bs := range specs {
		b := NewBlock(bs.Content, bs.Priority, bs.Source, 0)
		for k, v := range bs.Metadata {
			b.Metadata[k] = v
		}
		if bs.Section != "" {
			b.Metadata[MetaSection] = bs.Section
		}
		if bs.Timestamp != nil {
			b.Metadata[MetaTimestamp] = *bs.Timestamp
		}
		if bs.SizeEstimate != nil {
			b.SizeEstimate = *bs.SizeEstimate
		} else {
			b.SizeEstimate = counter.Count(b.Content)
		}
		out = append(out, b)
	}
	return out
}

// FillSizes sets SizeEstimate on every block that has content but no size.
func FillSizes(blocks []Block, counter Counter) {
	if counter == nil {
		counter = HeuristicCounter{}
	}
	for i := range blocks {
		if blocks[i].SizeEstimate == 0 && blocks[i].Content != "" {
			blocks[i].SizeEstimate = counter.Count(blocks[i].Content)
		}
	}
}

// DecodeRequest parses a single request document.
func DecodeRequest(r io.Reader) (RequestSpec, error) {
	var spec RequestSpec
	if err := yaml.NewDecoder(r).Decode(&spec); err != nil {
		if err == io.EOF {
			return RequestSpec{}, fmt.Errorf("empty request document")
		}
		return RequestSpec{}, fmt.Errorf("error decoding request: %w", err)
	}
	if err := spec.validate(); err != nil {
		return RequestSpec{}, err
	}
	return spec, nil
}

// LoadRequest reads a single request document from path.
func LoadRequest(path string) (RequestSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return RequestSpec{}, fmt.Errorf("error opening request file: %w", err)
	}
	defer f.Close()
	return DecodeRequest(f)
}

// DecodeBatch parses a batch document.
func DecodeBatch(r io.Reader) (BatchSpec, error) {
	var spec BatchSpec
	if err := yaml.NewDecoder(r).Decode(&spec); err != nil {
		if err == io.EOF {
			return BatchSpec{}, fmt.Errorf("empty batch document")
		}
		return BatchSpec{}, fmt.Errorf("error decoding batch: %w", err)
	}
	for i := range spec.Requests {
		if err := spec.Requests[i].validate(); err != nil {
			return BatchSpec{}, fmt.Errorf("request %d: %w", i, err)
		}
	}
	return spec, nil
}

// LoadBatch reads a batch document from path.
func LoadBatch(path string) (BatchSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return BatchSpec{}, fmt.Errorf("error opening batch file: %w", err)
	}
	defer f.Close()
	return DecodeBatch(f)
}

func (r RequestSpec) validate() error {
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative, got %d", r.MaxTokens)
	}
	if r.TimeoutMs < 0 {
		return fmt.Errorf("timeout_ms must not be negative, got %d", r.TimeoutMs)
	}
	for i, b := range r.Blocks {
		if b.SizeEstimate != nil && *b.SizeEstimate < 0 {
			return fmt.Errorf("block %d: size_estimate must not be negative", i)
		}
	}
	return nil
}

package cli

import (
	"strings"
	"time"

	"github.com/kcaldas/blockfit/pkg/blocks"
	"github.com/kcaldas/blockfit/pkg/config"
	"github.com/kcaldas/blockfit/pkg/coordinator"
)

// toRequest fills the fields a request file leaves unset from settings.
// A max_tokens of 0 in a file means "not given".
func toRequest(spec blocks.RequestSpec, settings config.Settings, counter blocks.Counter) coordinator.Request {
	req := coordinator.Request{
		Label:             spec.Label,
		Blocks:            blocks.ToBlocks(spec.Blocks, counter),
		MaxTokens:         spec.MaxTokens,
		Strategy:          blocks.Strategy(spec.Strategy),
		PreserveStructure: settings.PreserveStructure,
		Timeout:           time.Duration(spec.TimeoutMs) * time.Millisecond,
	}
	if req.Label == "" {
		req.Label = "cli"
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = settings.MaxTokens
	}
	if req.Strategy == "" {
		req.Strategy = blocks.Strategy(settings.Strategy)
	}
	if spec.PreserveStructure != nil {
		req.PreserveStructure = *spec.PreserveStructure
	}
	if req.Timeout <= 0 {
		req.Timeout = settings.Timeout()
	}
	return req
}

// originalContent joins every input block the way an unstructured outcome would.
func originalContent(bs []blocks.Block) string {
	parts := make([]string, len(bs))
	for i, b := range bs {
		parts[i] = b.Content
	}
	return strings.Join(parts, "\n\n")
}

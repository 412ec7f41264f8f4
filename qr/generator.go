package qr

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Generation describes one generated QR code after it has been persisted.
type Generation struct {
	Filename  string
	URL       string
	Data      string
	Size      int // requested edge length in pixels
	Width     int // actual edge length of the stored image
	PNG       []byte
	CreatedAt time.Time
}

// DataURI returns the PNG as an inline data:image/png;base64 URI.
func (g *Generation) DataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(g.PNG)
}

// Files persists rendered PNGs. Write returns the name the image was stored
// under.
type Files interface {
	Write(content string, png []byte, at time.Time) (string, error)
}

// Recorder keeps a log of completed generations.
type Recorder interface {
	RecordGeneration(ctx context.Context, g *Generation) error
}

// Notifier is told about every completed generation.
type Notifier interface {
	Notify(g *Generation) error
}

// Options configures a Generator. Recorder and Notifier are optional.
type Options struct {
	DefaultSize int
	MaxSize     int
	PublicURL   string
	Recorder    Recorder
	Notifier    Notifier
}

// Generator turns text into a stored PNG QR code plus its inline encoding.
type Generator struct {
	files       Files
	recorder    Recorder
	notifier    Notifier
	defaultSize int
	maxSize     int
	publicURL   string
	now         func() time.Time
	log         *slog.Logger
}

// NewGenerator creates a Generator that writes images through files.
func NewGenerator(files Files, opts Options, log *slog.Logger) *Generator {
	return &Generator{
		files:       files,
		recorder:    opts.Recorder,
		notifier:    opts.Notifier,
		defaultSize: opts.DefaultSize,
		maxSize:     opts.MaxSize,
		publicURL:   strings.TrimRight(opts.PublicURL, "/"),
		now:         time.Now,
		log:         log,
	}
}

// DefaultSize is the size used when a request does not specify one.
func (g *Generator) DefaultSize() int {
	return g.defaultSize
}

// Generate renders content as a QR code via RenderPNG. The same PNG bytes are
// written to storage and returned for inline embedding.
func (g *Generator) Generate(ctx context.Context, content string, size int) (*Generation, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid size %d: must be positive", size)
	}
	if g.maxSize > 0 && size > g.maxSize {
		return nil, fmt.Errorf("invalid size %d: exceeds maximum of %d", size, g.maxSize)
	}

	png, width, err := RenderPNG(content, size, g.defaultSize)
	if err != nil {
		return nil, err
	}

	createdAt := g.now()
	name, err := g.files.Write(content, png, createdAt)
	if err != nil {
		return nil, fmt.Errorf("save qr image: %w", err)
	}

	gen := &Generation{
		Filename:  name,
		URL:       g.publicURL + "/uploads/" + name,
		Data:      content,
		Size:      size,
		Width:     width,
		PNG:       png,
		CreatedAt: createdAt,
	}

	if g.recorder != nil {
		if err := g.recorder.RecordGeneration(ctx, gen); err != nil {
			g.log.Warn("failed to record generation", "error", err, "filename", name)
		}
	}

	if g.notifier != nil {
		go func() {
			if err := g.notifier.Notify(gen); err != nil {
				g.log.Warn("failed to send generation webhook", "error", err, "filename", name)
			}
		}()
	}

	g.log.Info("qr code generated", "filename", name, "size", size, "width", gen.Width, "bytes", len(png))
	return gen, nil
}

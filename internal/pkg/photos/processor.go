package photos

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/ImmoFox/app/models"
)

const (
	// MaxWorkers definiert die maximale Anzahl paralleler Bildverarbeitungen
	MaxWorkers = 3

	ThumbnailWidth = 320
	MediumWidth    = 1024

	jpegQuality = 85
)

// ProcessJob represents a photo processing job
type ProcessJob struct {
	Image    *models.PropertyImage
	Original image.Image
}

// Processor resizes uploaded listing photos and pushes the variants to S3
type Processor struct {
	client  *Client
	jobs    chan *ProcessJob
	wg      sync.WaitGroup
	mutex   sync.Mutex
	started bool
	onDone  func(*models.PropertyImage, error)
}

// Variant is one resized rendition of an uploaded photo
type Variant struct {
	ObjectKey string
	Data      []byte
	Width     int
	Height    int
}

var (
	processor *Processor
	once      sync.Once
)

// GetProcessor returns the shared photo processor, creating it on first use
func GetProcessor(client *Client) *Processor {
	once.Do(func() {
		processor = &Processor{
			client: client,
			jobs:   make(chan *ProcessJob, 100),
		}
		processor.Start()
	})
	return processor
}

// SetCompletionHook installs a callback invoked after each processed photo.
// Used by the repository layer to persist variant keys.
func (p *Processor) SetCompletionHook(fn func(*models.PropertyImage, error)) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.onDone = fn
}

// Start initializes the worker pool
func (p *Processor) Start() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.started {
		return
	}

	p.started = true
	for i := 0; i < MaxWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	log.Info("[Photos] Started worker pool with ", MaxWorkers, " workers")
}

// Stop gracefully shuts down the worker pool
func (p *Processor) Stop() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.started {
		return
	}

	close(p.jobs)
	p.wg.Wait()
	p.started = false
	log.Info("[Photos] Worker pool stopped")
}

// Enqueue adds a decoded photo to the processing queue
func (p *Processor) Enqueue(img *models.PropertyImage, original image.Image) {
	if !p.started {
		p.Start()
	}

	p.jobs <- &ProcessJob{
		Image:    img,
		Original: original,
	}
	log.Info(fmt.Sprintf("[Photos] Enqueued photo %s for processing", img.UUID))
}

func (p *Processor) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		err := p.process(job.Image, job.Original)
		if err != nil {
			log.Error(fmt.Sprintf("[Photos] Worker %d failed to process photo %s: %v", id, job.Image.UUID, err))
		} else {
			log.Info(fmt.Sprintf("[Photos] Worker %d completed photo %s", id, job.Image.UUID))
		}

		p.mutex.Lock()
		hook := p.onDone
		p.mutex.Unlock()
		if hook != nil {
			hook(job.Image, err)
		}
	}
}

// process generates the resized variants and uploads original plus variants
func (p *Processor) process(img *models.PropertyImage, original image.Image) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	now := time.Now()
	year, month := now.Year(), int(now.Month())

	bounds := original.Bounds()
	img.Width = bounds.Dx()
	img.Height = bounds.Dy()

	originalKey := p.client.config.ObjectKey(img.UUID, "", year, month)
	originalData, err := encodeJPEG(original)
	if err != nil {
		return fmt.Errorf("failed to encode original: %w", err)
	}
	if err := p.client.Upload(ctx, originalKey, originalData, "image/jpeg"); err != nil {
		return err
	}
	img.ObjectKey = originalKey
	img.ContentType = "image/jpeg"
	img.FileSize = int64(len(originalData))

	for _, spec := range []struct {
		name  string
		width int
	}{
		{"thumb", ThumbnailWidth},
		{"medium", MediumWidth},
	} {
		variant, err := MakeVariant(original, img.UUID, spec.name, spec.width, year, month, p.client.config)
		if err != nil {
			return fmt.Errorf("failed to build %s variant: %w", spec.name, err)
		}
		if err := p.client.Upload(ctx, variant.ObjectKey, variant.Data, "image/jpeg"); err != nil {
			return err
		}
		switch spec.name {
		case "thumb":
			img.ThumbObjectKey = variant.ObjectKey
		case "medium":
			img.MediumObjectKey = variant.ObjectKey
		}
	}

	return nil
}

// MakeVariant resizes a photo to the given width, keeping aspect ratio.
// Photos narrower than the target width are not upscaled.
func MakeVariant(src image.Image, photoUUID, name string, width, year, month int, cfg *Config) (*Variant, error) {
	resized := src
	if src.Bounds().Dx() > width {
		resized = imaging.Resize(src, width, 0, imaging.Lanczos)
	}

	data, err := encodeJPEG(resized)
	if err != nil {
		return nil, err
	}

	return &Variant{
		ObjectKey: cfg.ObjectKey(photoUUID, name, year, month),
		Data:      data,
		Width:     resized.Bounds().Dx(),
		Height:    resized.Bounds().Dy(),
	}, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package telegram

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"calc-api/api/internal/util"
)

const maxDocumentBytes = 20 << 20

func (r *Router) acceptPhoto(msg tgbotapi.Message) {
	// the last size is the largest
	ph := msg.Photo[len(msg.Photo)-1]
	r.acceptFile(msg, ph.FileID)
}

// acceptDocument handles images sent uncompressed as files.
func (r *Router) acceptDocument(msg tgbotapi.Message) {
	if msg.Document.FileSize > maxDocumentBytes {
		r.send(msg.Chat.ID, "That file is too large.")
		return
	}
	r.acceptFile(msg, msg.Document.FileID)
}

func (r *Router) acceptFile(msg tgbotapi.Message, fileID string) {
	cid := msg.Chat.ID
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		r.send(cid, "Could not fetch the photo: "+err.Error())
		return
	}
	imgBytes, err := r.download(context.Background(), url)
	if err != nil {
		r.log().Warn("photo download", zap.Int64("chat_id", cid), zap.Error(err))
		r.send(cid, "Could not fetch the photo: "+err.Error())
		return
	}

	key := fmt.Sprintf("chat:%d", cid)
	if msg.MediaGroupID != "" {
		key = "grp:" + msg.MediaGroupID
	}

	bi, _ := r.st.batches.LoadOrStore(key, &photoBatch{
		ChatID: cid, Key: key, MediaGroupID: msg.MediaGroupID, images: make([][]byte, 0, 4),
	})
	b := bi.(*photoBatch)

	d := r.Debounce
	if d <= 0 {
		d = debounce
	}

	b.mu.Lock()
	b.images = append(b.images, imgBytes)
	first := len(b.images) == 1
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(d, func() { r.processBatch(key) })
	b.mu.Unlock()

	if first {
		r.send(cid, "Got it, calculating…")
	}
}

// processBatch stacks the photos of one album into a single page and solves it.
func (r *Router) processBatch(key string) {
	bi, ok := r.st.batches.LoadAndDelete(key)
	if !ok {
		return
	}
	b := bi.(*photoBatch)

	b.mu.Lock()
	images := append([][]byte(nil), b.images...)
	chatID := b.ChatID
	b.mu.Unlock()

	if len(images) == 0 {
		return
	}

	img := images[0]
	if len(images) > 1 {
		merged, err := combineAsOne(images)
		if err != nil {
			r.send(chatID, "Could not combine the photos: "+err.Error())
			return
		}
		img = merged
	}
	r.solve(context.Background(), chatID, img)
}

// combineAsOne stacks images vertically on a white page, centred, and
// downscales the result to maxPixels.
func combineAsOne(images [][]byte) ([]byte, error) {
	decoded := make([]image.Image, 0, len(images))
	maxW, sumH := 0, 0
	for i, data := range images {
		img, _, err := util.DecodeImage(data)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		decoded = append(decoded, img)
		bnd := img.Bounds()
		maxW = max(maxW, bnd.Dx())
		sumH += bnd.Dy()
	}
	if maxW == 0 || sumH == 0 {
		return nil, fmt.Errorf("empty images")
	}

	dst := imaging.New(maxW, sumH, color.White)
	y := 0
	for _, img := range decoded {
		bnd := img.Bounds()
		dst = imaging.Paste(dst, img, image.Pt((maxW-bnd.Dx())/2, y))
		y += bnd.Dy()
	}

	final := image.Image(dst)
	if total := maxW * sumH; total > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(total))
		newW := max(1, int(float64(maxW)*scale+0.5))
		final = imaging.Resize(dst, newW, 0, imaging.Lanczos)
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, final, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (r *Router) download(ctx context.Context, url string) ([]byte, error) {
	c := r.Client
	if c == nil {
		c = &http.Client{Timeout: 60 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
}

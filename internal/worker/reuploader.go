package worker

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const reuploadInterval = 5 * time.Minute

// Reuploader 后台把本地暂存的回执重传到 OSS
type Reuploader struct {
	archiver Archiver
	linker   ReceiptLinker
	dir      string
	interval time.Duration
}

// NewReuploader linker 为 nil 时只上传不回填
func NewReuploader(archiver Archiver, linker ReceiptLinker, dir string) *Reuploader {
	return &Reuploader{
		archiver: archiver,
		linker:   linker,
		dir:      dir,
		interval: reuploadInterval,
	}
}

// Start 启动后台重传循环，启动后先执行一次
func (r *Reuploader) Start(ctx context.Context) {
	r.Run()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("worker: reuploader stopped")
			return
		case <-ticker.C:
			r.Run()
		}
	}
}

// Run 扫描一次暂存目录，返回成功上传的数量
func (r *Reuploader) Run() int {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).Warn("worker: failed to read receipt spool")
		}
		return 0
	}

	uploaded := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(r.dir, e.Name())
		logger := log.WithField("file", e.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			logger.WithError(err).Warn("worker: failed to read spooled receipt")
			continue
		}

		var doc ReceiptDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			logger.WithError(err).Warn("worker: malformed spooled receipt")
			continue
		}

		url, err := r.archiver.UploadReceipt(doc.InvoiceNumber, doc.BilledAt, data)
		if err != nil {
			logger.WithError(err).Warn("worker: receipt re-upload failed")
			continue
		}
		if r.linker != nil && doc.BillingID > 0 {
			if err := linkReceipt(r.archiver, r.linker, doc.BillingID, url); err != nil {
				logger.WithError(err).Warn("worker: failed to link re-uploaded receipt")
				continue
			}
		}

		if err := os.Remove(path); err != nil {
			logger.WithError(err).Warn("worker: failed to remove spooled receipt")
		}
		uploaded++
	}

	if uploaded > 0 {
		log.WithField("count", uploaded).Info("worker: re-uploaded spooled receipts")
	}
	return uploaded
}

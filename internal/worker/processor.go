package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/qs3c/sub_go_server/config"
	"github.com/qs3c/sub_go_server/internal/model"
	"github.com/qs3c/sub_go_server/internal/pkg/email"
	"github.com/qs3c/sub_go_server/internal/pkg/queue"
	"github.com/qs3c/sub_go_server/internal/repository"
)

// ErrRecordMissing 账单已不存在，任务直接丢弃
var ErrRecordMissing = errors.New("billing record not found")

// Archiver 回执归档存储
type Archiver interface {
	UploadReceipt(invoiceNumber string, billedAt time.Time, data []byte) (string, error)
	ExtractObjectKey(url string) string
	Delete(objectKey string) error
}

// ReceiptLinker 回填账单上的回执对象路径
type ReceiptLinker interface {
	SetReceiptKey(id int64, key string) error
}

// Mailer 回执邮件
type Mailer interface {
	Enabled() bool
	SendReceipt(to string, r *email.Receipt) error
}

// Requeuer 失败任务重新入队
type Requeuer interface {
	Push(ctx context.Context, job *queue.ReceiptJob) error
}

// ReceiptDocument 归档的回执内容
type ReceiptDocument struct {
	InvoiceNumber  string    `json:"invoice_number"`
	BillingID      int64     `json:"billing_id"`
	SubscriptionID int64     `json:"subscription_id"`
	UserID         int64     `json:"user_id"`
	Username       string    `json:"username"`
	PlanName       string    `json:"plan_name"`
	Amount         string    `json:"amount"`
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
	PaymentMethod  string    `json:"payment_method"`
	Description    string    `json:"description"`
	BilledAt       time.Time `json:"billed_at"`
	PeriodStart    time.Time `json:"period_start"`
	PeriodEnd      time.Time `json:"period_end"`
}

// Processor 回执任务处理器：生成回执、归档并发邮件
type Processor struct {
	billingRepo *repository.BillingRepository
	userRepo    *repository.UserRepository
	archiver    Archiver
	mailer      Mailer
	requeuer    Requeuer
	cfg         *config.Config
}

// NewProcessor archiver 为 nil 时回执写入本地暂存目录
func NewProcessor(
	billingRepo *repository.BillingRepository,
	userRepo *repository.UserRepository,
	archiver Archiver,
	mailer Mailer,
	requeuer Requeuer,
	cfg *config.Config,
) *Processor {
	return &Processor{
		billingRepo: billingRepo,
		userRepo:    userRepo,
		archiver:    archiver,
		mailer:      mailer,
		requeuer:    requeuer,
		cfg:         cfg,
	}
}

// Process 处理一条回执任务。归档失败时回执落盘等待重传，
// 邮件发送失败时按 max_attempts 重新入队。
func (p *Processor) Process(ctx context.Context, job *queue.ReceiptJob) error {
	logger := log.WithFields(log.Fields{
		"billing_id": job.BillingRecordID,
		"invoice":    job.InvoiceNumber,
		"attempt":    job.Attempt,
	})

	record, err := p.billingRepo.GetByID(job.BillingRecordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("worker: billing record missing, dropping job")
			return ErrRecordMissing
		}
		return fmt.Errorf("failed to load billing record: %w", err)
	}

	user, err := p.userRepo.GetByID(record.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	doc := BuildReceipt(record, user, p.cfg.Billing.CurrencySymbol)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode receipt: %w", err)
	}

	archiveURL := p.archive(doc, data, logger)

	if user.Email == nil || *user.Email == "" || p.mailer == nil || !p.mailer.Enabled() {
		logger.Info("worker: receipt archived, email skipped")
		return nil
	}

	mail := &email.Receipt{
		Username:       doc.Username,
		InvoiceNumber:  doc.InvoiceNumber,
		PlanName:       doc.PlanName,
		Amount:         doc.Amount,
		PaymentMethod:  doc.PaymentMethod,
		BilledAt:       doc.BilledAt.Format("2006-01-02"),
		PeriodEnd:      doc.PeriodEnd.Format("2006-01-02"),
		ArchiveURL:     archiveURL,
		CurrencySymbol: doc.Currency,
	}
	if err := p.mailer.SendReceipt(*user.Email, mail); err != nil {
		p.retry(ctx, job, logger)
		return fmt.Errorf("failed to send receipt email: %w", err)
	}

	logger.Info("worker: receipt delivered")
	return nil
}

// archive 上传回执并回填对象路径，未配置或失败时写入本地暂存目录
func (p *Processor) archive(doc *ReceiptDocument, data []byte, logger *log.Entry) string {
	if p.archiver != nil {
		url, err := p.archiver.UploadReceipt(doc.InvoiceNumber, doc.BilledAt, data)
		if err == nil {
			if err = linkReceipt(p.archiver, p.billingRepo, doc.BillingID, url); err == nil {
				return url
			}
			logger.WithError(err).Warn("worker: failed to link receipt, spooling locally")
		} else {
			logger.WithError(err).Warn("worker: receipt upload failed, spooling locally")
		}
	}

	if err := SpoolReceipt(p.cfg.Queue.ReceiptDir, doc.InvoiceNumber, data); err != nil {
		logger.WithError(err).Error("worker: failed to spool receipt")
	}
	return ""
}

func (p *Processor) retry(ctx context.Context, job *queue.ReceiptJob, logger *log.Entry) {
	maxAttempts := p.cfg.Queue.MaxAttempts
	if p.requeuer == nil || job.Attempt+1 >= maxAttempts {
		logger.Error("worker: giving up on receipt email")
		return
	}

	next := *job
	next.Attempt++
	next.EnqueuedAt = time.Time{}
	if err := p.requeuer.Push(ctx, &next); err != nil {
		logger.WithError(err).Error("worker: failed to requeue receipt job")
	}
}

// linkReceipt 把对象路径写回账单，失败时删除已上传的对象
func linkReceipt(archiver Archiver, linker ReceiptLinker, billingID int64, url string) error {
	key := archiver.ExtractObjectKey(url)
	if err := linker.SetReceiptKey(billingID, key); err != nil {
		if delErr := archiver.Delete(key); delErr != nil {
			log.WithError(delErr).WithField("key", key).Warn("worker: failed to delete orphan receipt")
		}
		return err
	}
	return nil
}

// BuildReceipt 由账单记录生成回执
func BuildReceipt(record *model.BillingRecord, user *model.User, currency string) *ReceiptDocument {
	doc := &ReceiptDocument{
		InvoiceNumber:  record.InvoiceNumber,
		BillingID:      record.ID,
		SubscriptionID: record.SubscriptionID,
		UserID:         record.UserID,
		Username:       user.Username,
		Amount:         record.Amount.StringFixed(2),
		Currency:       currency,
		Status:         record.Status,
		Description:    record.Description,
		BilledAt:       record.BilledAt,
	}
	if sub := record.Subscription; sub != nil {
		doc.PeriodStart = sub.StartDate
		doc.PeriodEnd = sub.EndDate
		if sub.Plan != nil {
			doc.PlanName = sub.Plan.Name
		}
	}
	if record.PaymentMethod != nil {
		doc.PaymentMethod = record.PaymentMethod.Display()
	}
	return doc
}

// SpoolReceipt 回执写入本地暂存目录
func SpoolReceipt(dir, invoiceNumber string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, invoiceNumber+".json"), data, 0o644)
}

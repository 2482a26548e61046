package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"library-manager/internal/domain"
	"library-manager/internal/repository"
	"library-manager/internal/storage"
)

const scanPageSize = 100

// Config controls the overdue scanner.
type Config struct {
	Interval  time.Duration
	Bucket    string
	KeyPrefix string
	Logger    *logrus.Logger
}

// OverdueScanner periodically walks the ledger for overdue loans, logs a
// summary, and archives a snapshot when object storage is configured.
// Overdue status is always derived from the current date at scan time;
// nothing is written back to the records.
type OverdueScanner struct {
	cfg     Config
	borrows repository.BorrowRepository
	storage storage.Service

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewOverdueScanner(cfg Config, borrows repository.BorrowRepository, store storage.Service) *OverdueScanner {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &OverdueScanner{
		cfg:     cfg,
		borrows: borrows,
		storage: store,
	}
}

// Start launches the scan loop. The first scan runs immediately.
func (s *OverdueScanner) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.scan(ctx)

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.scan(ctx)
			}
		}
	}()
	s.cfg.Logger.Infof("overdue scanner started, interval %s", s.cfg.Interval)
}

// Shutdown stops the loop and waits for an in-flight scan to finish.
func (s *OverdueScanner) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.cfg.Logger.Info("overdue scanner stopped")
}

func (s *OverdueScanner) scan(ctx context.Context) {
	logger := s.cfg.Logger.WithField("worker", "overdue")
	asOf := time.Now()

	var overdue []domain.BorrowRecord
	for page := 0; ; page++ {
		result, err := s.borrows.ListOverdue(ctx, asOf, repository.PageRequest{Page: page, Size: scanPageSize})
		if err != nil {
			logger.Errorf("list overdue: %v", err)
			return
		}
		overdue = append(overdue, result.Items...)
		if !result.HasNext() {
			break
		}
	}

	if len(overdue) == 0 {
		logger.Debug("no overdue loans")
		return
	}

	logger.Warnf("%d overdue loans", len(overdue))
	for i := range overdue {
		daysLate := int(domain.DateOnly(asOf).Sub(overdue[i].DueDate).Hours() / 24)
		logger.WithField("borrow_guid", overdue[i].GUID).
			Warnf("loan overdue by %d day(s), due %s", daysLate, overdue[i].DueDate.Format(time.DateOnly))
	}

	if s.storage == nil || s.cfg.Bucket == "" {
		return
	}
	if err := s.archive(ctx, asOf, overdue); err != nil {
		logger.Errorf("archive overdue report: %v", err)
	}
}

func (s *OverdueScanner) archive(ctx context.Context, asOf time.Time, overdue []domain.BorrowRecord) error {
	type entry struct {
		GUID     string `json:"guid"`
		BookGUID string `json:"book_guid"`
		UserGUID string `json:"user_guid"`
		DueDate  string `json:"due_date"`
	}

	entries := make([]entry, len(overdue))
	for i := range overdue {
		entries[i] = entry{
			GUID:     overdue[i].GUID,
			BookGUID: overdue[i].BookGUID,
			UserGUID: overdue[i].UserGUID,
			DueDate:  overdue[i].DueDate.Format(time.DateOnly),
		}
	}

	body, err := json.MarshalIndent(map[string]any{
		"as_of":   asOf.UTC().Format(time.RFC3339),
		"count":   len(entries),
		"overdue": entries,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal overdue report: %w", err)
	}

	key := fmt.Sprintf("%s/overdue/overdue-%s.json", s.cfg.KeyPrefix, asOf.UTC().Format("20060102T150405"))
	location, err := s.storage.UploadReport(ctx, s.cfg.Bucket, key, "application/json", body)
	if err != nil {
		return err
	}
	s.cfg.Logger.WithField("worker", "overdue").Infof("overdue report archived to %s", location)
	return nil
}

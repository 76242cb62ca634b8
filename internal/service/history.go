package service

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mojika/mojika/internal/domain"
	"github.com/mojika/mojika/internal/infrastructure/logger"
	"github.com/mojika/mojika/internal/port"
)

const (
	historyKey     = "transcription_histories"
	storageLimitMB = 5

	warningThreshold  = 0.80
	criticalThreshold = 0.95
	evictBatchSize    = 10
)

type StorageStatus string

const (
	StorageStatusNormal   StorageStatus = "normal"
	StorageStatusWarning  StorageStatus = "warning"
	StorageStatusCritical StorageStatus = "critical"
)

// StorageInfo summarizes how full the history namespace is.
type StorageInfo struct {
	Status     StorageStatus
	UsedMB     float64
	LimitMB    float64
	Percentage float64
}

// HistoryService persists completed transcriptions in a key-value store,
// newest first, evicting the oldest entries when the namespace nears its
// size budget.
type HistoryService struct {
	store port.KeyValue
}

func NewHistoryService(store port.KeyValue) *HistoryService {
	return &HistoryService{store: store}
}

// All returns every stored entry, most recent first. Read problems are
// logged and reported as an empty list so callers always get a usable
// result.
func (s *HistoryService) All() []*domain.TranscriptionHistory {
	raw, err := s.store.Get(historyKey)
	if err != nil {
		if err != domain.ErrKeyNotFound {
			logger.Error.Printf("failed to read history: %v", err)
		}
		return []*domain.TranscriptionHistory{}
	}

	var histories []*domain.TranscriptionHistory
	if err := json.Unmarshal(raw, &histories); err != nil {
		logger.Error.Printf("failed to parse history: %v", err)
		return []*domain.TranscriptionHistory{}
	}
	return histories
}

// Add prepends an entry for a completed job. When the namespace is at the
// critical threshold the oldest entries are evicted first to make room.
func (s *HistoryService) Add(job *domain.TranscriptionJob) error {
	histories := s.All()

	if status, err := s.StorageStatusInfo(); err == nil && status.Status == StorageStatusCritical {
		histories = evictOldest(histories, evictBatchSize)
		logger.Warn.Printf("history storage critical (%.2f%%), evicted %d oldest entries", status.Percentage, evictBatchSize)
	}

	entry := domain.NewHistoryEntry(job)
	histories = append([]*domain.TranscriptionHistory{entry}, histories...)

	return s.save(histories)
}

// Delete removes the entry with the given ID. Absent IDs are a no-op.
func (s *HistoryService) Delete(id string) error {
	histories := s.All()

	kept := histories[:0]
	for _, h := range histories {
		if h.ID != id {
			kept = append(kept, h)
		}
	}
	if len(kept) == len(histories) {
		return nil
	}
	return s.save(kept)
}

// GetByID looks up a single entry.
func (s *HistoryService) GetByID(id string) (*domain.TranscriptionHistory, error) {
	for _, h := range s.All() {
		if h.ID == id {
			return h, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Filter returns the stored entries matching the given filter.
func (s *HistoryService) Filter(filter domain.HistoryFilter) []*domain.TranscriptionHistory {
	return filterAt(s.All(), filter, time.Now())
}

// StorageStatusInfo reports usage against the namespace budget. Failures
// degrade to a zero-usage normal report.
func (s *HistoryService) StorageStatusInfo() (StorageInfo, error) {
	info := StorageInfo{
		Status:  StorageStatusNormal,
		LimitMB: storageLimitMB,
	}

	used, err := s.store.UsedBytes()
	if err != nil {
		logger.Error.Printf("failed to measure history storage: %v", err)
		return info, nil
	}

	limit := float64(storageLimitMB * 1024 * 1024)
	ratio := float64(used) / limit

	info.UsedMB = math.Round(float64(used)/(1024*1024)*100) / 100
	info.Percentage = math.Round(ratio*100*100) / 100

	switch {
	case ratio >= criticalThreshold:
		info.Status = StorageStatusCritical
	case ratio >= warningThreshold:
		info.Status = StorageStatusWarning
	}
	return info, nil
}

func (s *HistoryService) save(histories []*domain.TranscriptionHistory) error {
	raw, err := json.Marshal(histories)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.store.Set(historyKey, raw); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// evictOldest drops the n oldest entries by CreatedAt while keeping the
// stored most-recent-first order of the survivors.
func evictOldest(histories []*domain.TranscriptionHistory, n int) []*domain.TranscriptionHistory {
	if len(histories) <= n {
		return []*domain.TranscriptionHistory{}
	}

	byAge := make([]*domain.TranscriptionHistory, len(histories))
	copy(byAge, histories)
	sort.SliceStable(byAge, func(i, j int) bool {
		return byAge[i].CreatedAt.Before(byAge[j].CreatedAt)
	})
	evicted := make(map[*domain.TranscriptionHistory]bool, n)
	for _, h := range byAge[:n] {
		evicted[h] = true
	}

	kept := make([]*domain.TranscriptionHistory, 0, len(histories)-n)
	for _, h := range histories {
		if !evicted[h] {
			kept = append(kept, h)
		}
	}
	return kept
}

// filterAt applies keyword search, the date window relative to now, and the
// sort order.
func filterAt(histories []*domain.TranscriptionHistory, filter domain.HistoryFilter, now time.Time) []*domain.TranscriptionHistory {
	keywords := strings.Fields(strings.ToLower(filter.SearchTerm))

	matched := make([]*domain.TranscriptionHistory, 0, len(histories))
	for _, h := range histories {
		if !matchesKeywords(h, keywords) {
			continue
		}
		if !matchesDateFilter(h.CreatedAt, filter.DateFilter, now) {
			continue
		}
		matched = append(matched, h)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if filter.SortOrder == domain.SortAsc {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[j].CreatedAt.Before(matched[i].CreatedAt)
	})
	return matched
}

// matchesKeywords requires every keyword to appear in the filename or the
// transcript, case-insensitively.
func matchesKeywords(h *domain.TranscriptionHistory, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	filename := strings.ToLower(h.OriginalFilename)
	text := strings.ToLower(h.TranscriptionText)
	for _, kw := range keywords {
		if !strings.Contains(filename, kw) && !strings.Contains(text, kw) {
			return false
		}
	}
	return true
}

func matchesDateFilter(target time.Time, filter domain.DateFilter, now time.Time) bool {
	switch filter {
	case domain.DateFilterToday:
		ty, tm, td := target.Date()
		ny, nm, nd := now.Date()
		return ty == ny && tm == nm && td == nd
	case domain.DateFilterThisWeek:
		return !target.Before(now.AddDate(0, 0, -7))
	case domain.DateFilterThisMonth:
		ty, tm, _ := target.Date()
		ny, nm, _ := now.Date()
		return ty == ny && tm == nm
	default:
		return true
	}
}

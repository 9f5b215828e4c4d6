package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SergeiKhy/linkshort/internal/metrics"
	"github.com/SergeiKhy/linkshort/internal/repository"
	"go.uber.org/zap"
)

// Константы worker pool
const (
	defaultWorkerCount   = 3    // Количество воркеров
	defaultChannelBuffer = 1000 // Размер буфера канала
	incrementTimeout     = 5 * time.Second
)

// ClickRecorder принимает клики от редиректа, не блокируя запрос
type ClickRecorder interface {
	RecordClick(ctx context.Context, code string) error
}

// ClickProcessor интерфейс для асинхронного учёта кликов
type ClickProcessor interface {
	ClickRecorder
	Start()
	Stop()
	Stats() ChannelStats
}

// clickProcessor реализация процессора кликов с использованием Worker Pool.
// Каждый клик превращается в один атомарный инкремент в хранилище,
// поэтому параллельные воркеры не теряют обновления.
type clickProcessor struct {
	linkRepo     repository.LinkRepository
	logger       *zap.Logger
	clickChannel chan string // Канал коротких кодов
	workerCount  int
	wg           sync.WaitGroup

	mu      sync.RWMutex // Защищает закрытие канала
	stopped bool
}

// NewClickProcessor создаёт новый экземпляр процессора кликов
func NewClickProcessor(
	linkRepo repository.LinkRepository,
	workers int,
	buffer int,
	logger *zap.Logger,
) ClickProcessor {
	if workers <= 0 {
		workers = defaultWorkerCount
	}
	if buffer <= 0 {
		buffer = defaultChannelBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &clickProcessor{
		linkRepo:     linkRepo,
		logger:       logger,
		clickChannel: make(chan string, buffer),
		workerCount:  workers,
	}
}

// Start запускает worker pool
func (p *clickProcessor) Start() {
	p.logger.Info("Запуск воркеров процессора кликов", zap.Int("count", p.workerCount))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop перестаёт принимать клики и дожидается обработки уже принятых
func (p *clickProcessor) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.clickChannel)
	p.mu.Unlock()

	p.logger.Info("Остановка процессора кликов...", zap.Int("pending", len(p.clickChannel)))
	p.wg.Wait()
	p.logger.Info("Процессор кликов остановлен")
}

// worker обрабатывает клики, пока канал не закрыт и не опустошён
func (p *clickProcessor) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Воркер кликов запущен", zap.Int("id", id))

	for code := range p.clickChannel {
		p.processClick(code)
	}

	p.logger.Debug("Воркер кликов остановлен", zap.Int("id", id))
}

// processClick выполняет один инкремент. Повторов нет: инкремент не идемпотентен.
func (p *clickProcessor) processClick(code string) {
	ctx, cancel := context.WithTimeout(context.Background(), incrementTimeout)
	defer cancel()

	err := p.linkRepo.IncrementClicks(ctx, code)
	switch {
	case err == nil:
		metrics.ClicksRecorded.Inc()
	case errors.Is(err, repository.ErrLinkNotFound):
		// Ссылку удалили между редиректом и записью клика
		p.logger.Debug("Клик для удалённой ссылки пропущен", zap.String("short", code))
	default:
		metrics.ClicksDropped.Inc()
		p.logger.Error("Не удалось записать клик",
			zap.String("short", code),
			zap.Error(err),
		)
	}
}

// RecordClick отправляет клик в worker pool (неблокирующая операция)
func (p *clickProcessor) RecordClick(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		metrics.ClicksDropped.Inc()
		p.logger.Debug("Процессор остановлен, клик потерян", zap.String("short", code))
		return nil
	}

	select {
	case p.clickChannel <- code:
		return nil
	default:
		// Канал заполнен, теряем статистику, но не блокируем редирект
		metrics.ClicksDropped.Inc()
		p.logger.Warn("Буфер канала кликов заполнен, событие потеряно",
			zap.String("short", code),
		)
		return nil
	}
}

// Stats возвращает статистику канала для мониторинга
func (p *clickProcessor) Stats() ChannelStats {
	return ChannelStats{
		BufferSize:  cap(p.clickChannel),
		BufferUsed:  len(p.clickChannel),
		WorkerCount: p.workerCount,
	}
}

// ChannelStats статистика канала worker pool
type ChannelStats struct {
	BufferSize  int `json:"buffer_size"`  // Общая ёмкость канала
	BufferUsed  int `json:"buffer_used"`  // Текущее использование
	WorkerCount int `json:"worker_count"` // Количество воркеров
}

// internal/utils/metrics/metrics.go
package metrics

import (
	"time"
)

// nil *Collector допустим во всех методах: компоненты работают без метрик.

// RecordConnectAttempt записывает попытку подключения к RPC
func (c *Collector) RecordConnectAttempt(success bool) {
	if c == nil {
		return
	}
	c.connectAttempts.WithLabelValues(result(success)).Inc()
}

// RecordPoolFetch записывает загрузку набора пулов
func (c *Collector) RecordPoolFetch(success bool) {
	if c == nil {
		return
	}
	c.poolFetches.WithLabelValues(result(success)).Inc()
}

// ObserveCandidates записывает число пулов-кандидатов для пары
func (c *Collector) ObserveCandidates(n int) {
	if c == nil {
		return
	}
	c.candidatePools.Observe(float64(n))
}

// RecordPoolQuoteFailure пул исключён из-за ошибки расчёта
func (c *Collector) RecordPoolQuoteFailure() {
	if c == nil {
		return
	}
	c.poolQuoteFailures.Inc()
}

// RecordQuote записывает итог расчёта котировки
func (c *Collector) RecordQuote(success bool) {
	if c == nil {
		return
	}
	c.quotes.WithLabelValues(result(success)).Inc()
}

// RecordPrepareFailure записывает этап, на котором подготовка не удалась
func (c *Collector) RecordPrepareFailure(stage string) {
	if c == nil {
		return
	}
	c.prepareFailures.WithLabelValues(stage).Inc()
}

// RecordExecution записывает исход исполнения (confirmed, expired, timeout, ...)
func (c *Collector) RecordExecution(outcome string) {
	if c == nil {
		return
	}
	c.executions.WithLabelValues(outcome).Inc()
}

// ObserveConfirmation записывает время ожидания подтверждения
func (c *Collector) ObserveConfirmation(d time.Duration) {
	if c == nil {
		return
	}
	c.confirmationDuration.Observe(d.Seconds())
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

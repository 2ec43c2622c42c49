package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	dbConnsTotal = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "db", "connections_open"),
		"Total number of open database connections", nil, nil)
	dbConnsAcquired = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "db", "connections_in_use"),
		"Number of database connections currently acquired", nil, nil)
	dbConnsIdle = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "db", "connections_idle"),
		"Number of idle database connections", nil, nil)
	dbConnsMax = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "db", "connections_max_open"),
		"Maximum number of open database connections allowed", nil, nil)
	dbAcquireWait = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "db", "acquire_wait_seconds_total"),
		"Cumulative time spent waiting for a connection", nil, nil)
	dbEmptyAcquire = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "db", "empty_acquire_total"),
		"Acquires that had to wait because the pool was empty", nil, nil)
)

// PoolCollector reads pgxpool statistics at scrape time.
type PoolCollector struct {
	pool *pgxpool.Pool
}

var _ prometheus.Collector = (*PoolCollector)(nil)

func NewPoolCollector(pool *pgxpool.Pool) *PoolCollector {
	return &PoolCollector{pool: pool}
}

// RegisterPool adds a pool collector to Registry.
func RegisterPool(pool *pgxpool.Pool) error {
	return Registry.Register(NewPoolCollector(pool))
}

func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- dbConnsTotal
	ch <- dbConnsAcquired
	ch <- dbConnsIdle
	ch <- dbConnsMax
	ch <- dbAcquireWait
	ch <- dbEmptyAcquire
}

func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	if c.pool == nil {
		return
	}
	stat := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(dbConnsTotal, prometheus.GaugeValue, float64(stat.TotalConns()))
	ch <- prometheus.MustNewConstMetric(dbConnsAcquired, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(dbConnsIdle, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(dbConnsMax, prometheus.GaugeValue, float64(stat.MaxConns()))
	ch <- prometheus.MustNewConstMetric(dbAcquireWait, prometheus.CounterValue, stat.AcquireDuration().Seconds())
	ch <- prometheus.MustNewConstMetric(dbEmptyAcquire, prometheus.CounterValue, float64(stat.EmptyAcquireCount()))
}

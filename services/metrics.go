package services

import "github.com/prometheus/client_golang/prometheus"

var (
	ingestionRunsCounter     *prometheus.CounterVec
	ingestedRecordsCounter   *prometheus.CounterVec
	listRegenerationsCounter prometheus.Counter
)

func init() {
	ingestionRunsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "standarr_ingestion_runs_total",
			Help: "Total number of finished ingestion runs by provider and terminal status.",
		},
		[]string{"provider", "status"},
	)
	ingestedRecordsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "standarr_ingested_records_total",
			Help: "Total number of provider records committed to the catalog.",
		},
		[]string{"provider"},
	)
	listRegenerationsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "standarr_list_regenerations_total",
			Help: "Total number of list regenerations.",
		},
	)
	prometheus.MustRegister(ingestionRunsCounter, ingestedRecordsCounter, listRegenerationsCounter)
}

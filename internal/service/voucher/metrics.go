package voucher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	vouchersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinybooks",
			Name:      "vouchers_created_total",
			Help:      "Committed vouchers by kind",
		},
		[]string{"kind"},
	)
	vouchersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tinybooks",
		Name:      "vouchers_cancelled_total",
		Help:      "Vouchers transitioned to cancelled",
	})
	numberRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tinybooks",
		Name:      "voucher_number_retries_total",
		Help:      "Voucher transactions retried after a number collision",
	})
)

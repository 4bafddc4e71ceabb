package httpapi

import (
	"github.com/tinybooks/tinybooks/internal/service/voucher"
	"github.com/tinybooks/tinybooks/internal/storage/memory"
	"github.com/tinybooks/tinybooks/internal/storage/postgres"
)

// Compile-time assertions tying the engine and stores to the API interfaces.
var (
	_ Engine       = (*voucher.Engine)(nil)
	_ ReadyChecker = (*memory.Store)(nil)
	_ ReadyChecker = (*postgres.Store)(nil)
)

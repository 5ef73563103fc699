package mocks

//go:generate go run github.com/golang/mock/mockgen -destination=mock_ledger_repository.go -package=mocks github.com/mikey1384/twinkle-vite-sub013/internal/services LedgerRepository
//go:generate go run github.com/golang/mock/mockgen -destination=mock_balances_repository.go -package=mocks github.com/mikey1384/twinkle-vite-sub013/internal/services BalancesRepository
//go:generate go run github.com/golang/mock/mockgen -destination=mock_video_projection_reader.go -package=mocks github.com/mikey1384/twinkle-vite-sub013/internal/services VideoProjectionReader
//go:generate go run github.com/golang/mock/mockgen -destination=mock_progress_repository.go -package=mocks github.com/mikey1384/twinkle-vite-sub013/internal/services ProgressRepository
//go:generate go run github.com/golang/mock/mockgen -destination=mock_outbox_enqueuer.go -package=mocks github.com/mikey1384/twinkle-vite-sub013/internal/services OutboxEnqueuer

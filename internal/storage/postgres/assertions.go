package postgres

import (
	"github.com/magnolia-hms/finance/internal/service/budget"
	"github.com/magnolia-hms/finance/internal/service/journal"
	"github.com/magnolia-hms/finance/internal/service/report"
	"github.com/magnolia-hms/finance/internal/service/translate"
)

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	_ journal.Repo        = (*Store)(nil)
	_ journal.Writer      = (*Store)(nil)
	_ translate.Store     = (*Store)(nil)
	_ report.LedgerRepo   = (*Store)(nil)
	_ report.DocumentRepo = (*Store)(nil)
	_ budget.Store        = (*Store)(nil)
)

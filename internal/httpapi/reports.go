package httpapi

import (
	"net/http"
	"time"
)

func parseAsOf(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	asOf := time.Now().UTC()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			badRequest(w, "invalid as_of date")
			return time.Time{}, false
		}
		asOf = t
	}
	return asOf, true
}

// parsePeriod reads required from/to query params bounding a reporting period.
func parsePeriod(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()
	from, err := time.Parse("2006-01-02", q.Get("from"))
	if err != nil {
		badRequest(w, "invalid or missing from date")
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse("2006-01-02", q.Get("to"))
	if err != nil {
		badRequest(w, "invalid or missing to date")
		return time.Time{}, time.Time{}, false
	}
	if to.Before(from) {
		badRequest(w, "to must not precede from")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func (s *Server) trialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, ok := parseAsOf(w, r)
	if !ok {
		return
	}
	includeUnposted := r.URL.Query().Get("include_unposted") == "true"
	tb, err := s.reports.BuildTrialBalance(r.Context(), asOf, includeUnposted)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, tb)
}

func (s *Server) incomeStatement(w http.ResponseWriter, r *http.Request) {
	from, to, ok := parsePeriod(w, r)
	if !ok {
		return
	}
	is, err := s.reports.BuildIncomeStatement(r.Context(), from, to)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, is)
}

func (s *Server) balanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, ok := parseAsOf(w, r)
	if !ok {
		return
	}
	bs, err := s.reports.BuildBalanceSheet(r.Context(), asOf)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, bs)
}

func (s *Server) cashFlow(w http.ResponseWriter, r *http.Request) {
	from, to, ok := parsePeriod(w, r)
	if !ok {
		return
	}
	cf, err := s.reports.BuildCashFlow(r.Context(), from, to)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, cf)
}

func (s *Server) receivableAging(w http.ResponseWriter, r *http.Request) {
	asOf, ok := parseAsOf(w, r)
	if !ok {
		return
	}
	rep, err := s.reports.BuildReceivableAging(r.Context(), asOf)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, rep)
}

func (s *Server) payableAging(w http.ResponseWriter, r *http.Request) {
	asOf, ok := parseAsOf(w, r)
	if !ok {
		return
	}
	rep, err := s.reports.BuildPayableAging(r.Context(), asOf)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, rep)
}

package httpapi

import (
	"net/http"

	"github.com/govalues/decimal"

	"github.com/magnolia-hms/finance/internal/ledger"
	"github.com/magnolia-hms/finance/internal/service/translate"
)

func (s *Server) postBill(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req billRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.docs.PostBill(r.Context(), translate.BillInput{
		Number:   req.Number,
		VendorID: req.VendorID,
		BillDate: req.BillDate,
		DueDate:  req.DueDate,
		TaxMinor: req.TaxMinor,
		Items:    toItemInputs(req.Items),
		Actor:    req.Actor,
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	documentsPostedTotal.WithLabelValues(string(ledger.DocBill)).Inc()
	toJSON(w, http.StatusCreated, toDocumentResponse(res))
}

func (s *Server) postInvoice(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req invoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := translate.InvoiceInput{
		Number:      req.Number,
		CustomerID:  req.CustomerID,
		InvoiceDate: req.InvoiceDate,
		DueDate:     req.DueDate,
		Items:       toItemInputs(req.Items),
		Actor:       req.Actor,
	}
	if req.TaxRate != "" {
		rate, err := decimal.Parse(req.TaxRate)
		if err != nil {
			badRequest(w, "invalid tax_rate")
			return
		}
		in.TaxRate = &rate
	}
	res, err := s.docs.PostInvoice(r.Context(), in)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	documentsPostedTotal.WithLabelValues(string(ledger.DocInvoice)).Inc()
	toJSON(w, http.StatusCreated, toDocumentResponse(res))
}

func (s *Server) postDisbursement(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req disbursementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.docs.PostDisbursement(r.Context(), translate.DisbursementInput{
		Number:      req.Number,
		Payee:       req.Payee,
		Purpose:     req.Purpose,
		Method:      req.Method,
		Date:        req.Date,
		AmountMinor: req.AmountMinor,
		Actor:       req.Actor,
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	documentsPostedTotal.WithLabelValues(string(ledger.DocDisbursement)).Inc()
	toJSON(w, http.StatusCreated, toDocumentResponse(res))
}

func (s *Server) postPaymentReceived(w http.ResponseWriter, r *http.Request) {
	s.postPayment(w, r, ledger.DocPaymentReceived)
}

func (s *Server) postPaymentMade(w http.ResponseWriter, r *http.Request) {
	s.postPayment(w, r, ledger.DocPaymentMade)
}

func (s *Server) postPayment(w http.ResponseWriter, r *http.Request, docType ledger.DocumentType) {
	if !requireJSON(w, r) {
		return
	}
	var req paymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := translate.PaymentInput{
		Number:      req.Number,
		InvoiceID:   req.InvoiceID,
		BillID:      req.BillID,
		Method:      req.Method,
		Date:        req.Date,
		AmountMinor: req.AmountMinor,
		Actor:       req.Actor,
	}
	var (
		res translate.Result
		err error
	)
	if docType == ledger.DocPaymentReceived {
		res, err = s.docs.PostPaymentReceived(r.Context(), in)
	} else {
		res, err = s.docs.PostPaymentMade(r.Context(), in)
	}
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	documentsPostedTotal.WithLabelValues(string(docType)).Inc()
	toJSON(w, http.StatusCreated, toDocumentResponse(res))
}

func (s *Server) postAdjustment(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req adjustmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.docs.PostAdjustment(r.Context(), translate.AdjustmentInput{
		Number:      req.Number,
		Type:        req.Type,
		BillID:      req.BillID,
		InvoiceID:   req.InvoiceID,
		Date:        req.Date,
		AmountMinor: req.AmountMinor,
		Reason:      req.Reason,
		Actor:       req.Actor,
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	documentsPostedTotal.WithLabelValues(string(ledger.DocAdjustment)).Inc()
	toJSON(w, http.StatusCreated, toDocumentResponse(res))
}

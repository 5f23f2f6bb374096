package orders

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"fabritrack/apperr"
	"fabritrack/models"
	"fabritrack/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SignReceiptPayload returns orderID|txnID|timestamp|signature. The
// HMAC lets a warehouse scanner verify a receipt offline.
func SignReceiptPayload(secret []byte, orderID, txnID string, at time.Time) string {
	data := fmt.Sprintf("%s|%s|%d", orderID, txnID, at.Unix())
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(data))
	sig := base64.StdEncoding.EncodeToString(h.Sum(nil))
	return data + "|" + sig
}

// VerifyReceiptPayload checks the signature on a scanned payload.
func VerifyReceiptPayload(secret []byte, payload string) bool {
	idx := len(payload) - 1
	for ; idx >= 0; idx-- {
		if payload[idx] == '|' {
			break
		}
	}
	if idx <= 0 {
		return false
	}
	data, sig := payload[:idx], payload[idx+1:]
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(data))
	expected := base64.StdEncoding.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(sig))
}

// Receipt renders a paid order as a PDF with a signed QR code.
// Visibility follows the same ownership rule as GetOrder.
func (h *Handlers) Receipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := primitive.ObjectIDFromHex(ps.ByName("id"))
	if err != nil {
		utils.RespondAppError(w, apperr.New(apperr.InvalidArgument, "Invalid order id"))
		return
	}

	caller, err := h.Guard.ResolveIdentity(r)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	order, err := h.Engine.GetVisible(r.Context(), id, caller)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}
	if order.PaymentStatus != models.PaymentPaid {
		utils.RespondAppError(w, apperr.New(apperr.PreconditionFail, "Order is not paid"))
		return
	}

	paidAt := order.CreatedAt
	if order.PaidAt != nil {
		paidAt = *order.PaidAt
	}
	qrPayload := SignReceiptPayload(h.ReceiptSecret, order.ID.Hex(), order.TransactionID, paidAt)
	qrPNG, err := qrcode.Encode(qrPayload, qrcode.Medium, 256)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Order Receipt")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Order ID: %s", order.ID.Hex()))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Buyer: %s", order.UserEmail))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Product: %s", order.ProductTitle))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Total: $%.2f", order.TotalPrice))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Paid at: %s", paidAt.Format(time.RFC1123)))
	pdf.Ln(12)

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 40, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		utils.RespondAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=receipt-"+order.ID.Hex()+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/generalbusiness/allodakar/internal/handlers/render"
	"github.com/generalbusiness/allodakar/internal/logger"
	"github.com/generalbusiness/allodakar/internal/models"
)

// Header making money movement safe to retry
const idempotencyHeader = "Idempotency-Key"

type messageResponse struct {
	Message string `json:"message"`
}

type transactionMessageResponse struct {
	Message     string              `json:"message"`
	Transaction transactionResponse `json:"transaction"`
}

func handleBalance(ledgerService ledgerService, l logger.Logger) http.Handler {
	type response struct {
		Balance    int64 `json:"balance"`
		HasPinCode bool  `json:"hasPinCode"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r, l)
		if !ok {
			return
		}

		wallet, err := ledgerService.Balance(r.Context(), session.UserID)
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		render.JSON(w, response{Balance: wallet.Balance, HasPinCode: wallet.HasPin()})
	})
}

func handleSetPin(ledgerService ledgerService, l logger.Logger) http.Handler {
	type request struct {
		PinCode string `json:"pinCode" validate:"required,pin"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r, l)
		if !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		if err := ledgerService.SetPin(r.Context(), session.UserID, data.PinCode); err != nil {
			render.Error(w, r, l, err)
			return
		}

		render.JSON(w, messageResponse{Message: "PIN code set successfully"})
	})
}

func handleVerifyPin(ledgerService ledgerService, l logger.Logger) http.Handler {
	type request struct {
		PinCode string `json:"pinCode" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r, l)
		if !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		if err := ledgerService.VerifyPin(r.Context(), session.UserID, data.PinCode); err != nil {
			render.Error(w, r, l, err)
			return
		}

		render.JSON(w, messageResponse{Message: "PIN verified successfully"})
	})
}

func handleDeposit(ledgerService ledgerService, l logger.Logger) http.Handler {
	type request struct {
		Amount int64  `json:"amount"`
		Method string `json:"method"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r, l)
		if !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		t, err := ledgerService.Deposit(r.Context(), session.UserID, data.Amount, methodOrDefault(data.Method), r.Header.Get(idempotencyHeader))
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		render.JSONWithStatus(w, transactionMessageResponse{
			Message:     "Deposit completed",
			Transaction: newTransactionResponse(t),
		}, http.StatusCreated)
	})
}

func handleWithdraw(ledgerService ledgerService, l logger.Logger) http.Handler {
	type request struct {
		Amount  int64  `json:"amount"`
		Method  string `json:"method"`
		PinCode string `json:"pinCode"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r, l)
		if !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		if err := ledgerService.AuthorizeDebit(r.Context(), session.UserID, data.PinCode); err != nil {
			render.Error(w, r, l, err)
			return
		}

		t, err := ledgerService.Withdraw(r.Context(), session.UserID, data.Amount, methodOrDefault(data.Method), r.Header.Get(idempotencyHeader))
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		render.JSONWithStatus(w, transactionMessageResponse{
			Message:     "Withdrawal completed",
			Transaction: newTransactionResponse(t),
		}, http.StatusCreated)
	})
}

func handleTransfer(ledgerService ledgerService, l logger.Logger) http.Handler {
	type request struct {
		ToUserID uuid.UUID `json:"toUserId" validate:"required"`
		Amount   int64     `json:"amount"`
		PinCode  string    `json:"pinCode"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r, l)
		if !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		if err := ledgerService.AuthorizeDebit(r.Context(), session.UserID, data.PinCode); err != nil {
			render.Error(w, r, l, err)
			return
		}

		t, err := ledgerService.Transfer(r.Context(), session.UserID, data.ToUserID, data.Amount, r.Header.Get(idempotencyHeader))
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		render.JSON(w, transactionMessageResponse{
			Message:     "Transfer successful",
			Transaction: newTransactionResponse(t),
		})
	})
}

func handleTransactions(ledgerService ledgerService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r, l)
		if !ok {
			return
		}
		limit, ok := queryInt(w, r, "limit")
		if !ok {
			return
		}

		history, err := ledgerService.History(r.Context(), session.UserID, limit)
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		res := make([]transactionResponse, 0, len(history))
		for _, t := range history {
			res = append(res, newTransactionResponse(t))
		}
		render.JSON(w, res)
	})
}

func handleReconcile(ledgerService ledgerService, l logger.Logger) http.Handler {
	type response struct {
		Balance     int64 `json:"balance"`
		LedgerTotal int64 `json:"ledgerTotal"`
		Consistent  bool  `json:"consistent"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFrom(w, r, l)
		if !ok {
			return
		}

		rec, err := ledgerService.Reconcile(r.Context(), session.UserID)
		if err != nil {
			render.Error(w, r, l, err)
			return
		}

		if !rec.Consistent() {
			l.Error("wallet balance differs from ledger", "user_id", rec.UserID, "balance", rec.Balance, "ledger_total", rec.LedgerTotal)
		}
		render.JSON(w, response{Balance: rec.Balance, LedgerTotal: rec.LedgerTotal, Consistent: rec.Consistent()})
	})
}

func methodOrDefault(method string) string {
	if method == "" {
		return models.PaymentWave
	}
	return method
}

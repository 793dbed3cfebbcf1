package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/songcraft/songcraft-api/internal/api/shared"
	"github.com/songcraft/songcraft-api/internal/platform/logger"
	"github.com/songcraft/songcraft-api/internal/service"
)

// PaymentHandler receives confirmed payments and starts song generation.
type PaymentHandler struct {
	songService service.SongService
	logger      *slog.Logger
}

// NewPaymentHandler creates a PaymentHandler.
func NewPaymentHandler(songService service.SongService, logger *slog.Logger) *PaymentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentHandler{
		songService: songService,
		logger:      logger.With(slog.String("component", "payment_handler")),
	}
}

// PaymentConfirmed handles POST /api/payments/confirmed.
//
// A new order answers 202 with the queued song. A redelivered order answers
// 200 with the song that already exists.
func (h *PaymentHandler) PaymentConfirmed(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req PaymentConfirmedRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		log.Debug("invalid payment payload", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	evt := service.PaymentConfirmed{
		UserID:  uuid.MustParse(req.UserID),
		OrderID: uuid.MustParse(req.OrderID),
		Request: req.SongRequest(),
	}

	song, err := h.songService.CreateFromPayment(r.Context(), evt)
	switch {
	case err == nil:
		shared.RespondWithJSON(w, r, http.StatusAccepted, songToResponse(song))
	case errors.Is(err, service.ErrSongExists) && song != nil:
		log.Info("payment already processed",
			slog.String("order_id", evt.OrderID.String()),
			slog.String("song_id", song.ID.String()))
		shared.RespondWithJSON(w, r, http.StatusOK, songToResponse(song))
	default:
		HandleAPIError(w, r, err, "")
	}
}

package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"
)

func (app *application) JWTMiddlewareWithRole(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return app.JWTMiddleware(next, requiredRole)
	}
}

func (app *application) routes() http.Handler {
	standardMiddleware := alice.New(app.recoverPanic, app.logRequest, secureHeaders, makeResponseJSON)
	authMiddleware := standardMiddleware.Append(app.JWTMiddlewareWithRole(""))
	adminAuthMiddleware := standardMiddleware.Append(app.JWTMiddlewareWithRole("admin"))

	mux := pat.New()

	// Payments
	mux.Post("/payments", authMiddleware.ThenFunc(app.paymentHandler.InitiatePayment))
	mux.Get("/payments/verify/:reference", authMiddleware.ThenFunc(app.paymentHandler.VerifyPayment))
	mux.Post("/payments/recurring", adminAuthMiddleware.ThenFunc(app.paymentHandler.ChargeRecurring))

	// Webhooks carry their own signatures, no JWT here.
	mux.Post("/webhooks/paystack", standardMiddleware.ThenFunc(app.webhookHandler.Paystack))
	mux.Post("/webhooks/truelayer", standardMiddleware.ThenFunc(app.webhookHandler.TrueLayer))
	mux.Post("/webhooks/nium", standardMiddleware.ThenFunc(app.webhookHandler.Nium))

	// Milestones
	mux.Post("/campaigns/:id/milestones", authMiddleware.ThenFunc(app.milestoneHandler.CreateSchedule))
	mux.Get("/campaigns/:id/milestones", authMiddleware.ThenFunc(app.milestoneHandler.ListByCampaign))

	// Balances
	mux.Get("/campaigns/:id/balance", authMiddleware.ThenFunc(app.paymentHandler.CampaignBalance))
	mux.Get("/brands/:id/outstanding", authMiddleware.ThenFunc(app.paymentHandler.OutstandingBalance))

	// Payouts and beneficiaries
	mux.Post("/payouts/:id/release", adminAuthMiddleware.ThenFunc(app.payoutHandler.ReleasePayout))
	mux.Post("/beneficiaries", authMiddleware.ThenFunc(app.payoutHandler.CreateBeneficiary))
	mux.Get("/beneficiaries/:creator_id", authMiddleware.ThenFunc(app.payoutHandler.ListBeneficiaries))
	mux.Post("/beneficiaries/default", authMiddleware.ThenFunc(app.payoutHandler.SetDefaultBeneficiary))

	return standardMiddleware.Then(mux)
}

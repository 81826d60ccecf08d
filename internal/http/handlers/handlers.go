// Handler wiring.
//
// Handlers groups the HTTP endpoints for webhooks, invites, onboarding
// responses, and the admin surface. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
package handlers

// Handlers groups HTTP endpoints and their service dependencies.
type Handlers struct {
	webhookSvc WebhookProcessor
	inviteSvc  InviteService
	leadSvc    LeadService
	adminSvc   AdminStore
}

// New constructs a Handlers instance bound to the given services.
func New(webhookSvc WebhookProcessor, inviteSvc InviteService, leadSvc LeadService, adminSvc AdminStore) *Handlers {
	return &Handlers{
		webhookSvc: webhookSvc,
		inviteSvc:  inviteSvc,
		leadSvc:    leadSvc,
		adminSvc:   adminSvc,
	}
}

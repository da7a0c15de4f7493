package support_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smartsite-dev/api/internal/store"
	"github.com/smartsite-dev/api/internal/support"
	"github.com/smartsite-dev/api/pkg/apperrors"
)

var _ = Describe("Engine", func() {
	var (
		ctx    context.Context
		st     *store.MemoryStore
		engine *support.Engine
	)

	BeforeEach(func() {
		ctx = context.Background()
		st = store.NewMemoryStore()
		engine = support.NewEngine(st)
	})

	Describe("CreateTicket", func() {
		It("should open a plain ticket as new when no rule matches", func() {
			ticket, err := engine.CreateTicket(ctx, "client@example.com", "Question about reports", "How do I add a custom report column?")
			Expect(err).ToNot(HaveOccurred())
			Expect(ticket.Status).To(Equal(store.TicketStatusNew))
			Expect(ticket.Suggestion).To(BeNil())
		})

		It("should attach a suggestion when the message matches a rule", func() {
			ticket, err := engine.CreateTicket(ctx, "client@example.com", "Help", "I am locked out and cannot reset my password")
			Expect(err).ToNot(HaveOccurred())
			Expect(ticket.Status).To(Equal(store.TicketStatusAutoSuggested))
			Expect(ticket.Suggestion).ToNot(BeNil())
			Expect(*ticket.Suggestion).To(ContainSubstring("reset your password"))
		})

		It("should match keywords in the subject too", func() {
			ticket, err := engine.CreateTicket(ctx, "client@example.com", "Page not showing", "I saved my changes yesterday.")
			Expect(err).ToNot(HaveOccurred())
			Expect(ticket.Status).To(Equal(store.TicketStatusAutoSuggested))
		})

		It("should reject an invalid email", func() {
			_, err := engine.CreateTicket(ctx, "not-an-email", "Subject", "Message")
			Expect(apperrors.IsValidation(err)).To(BeTrue())
		})

		It("should reject an empty message", func() {
			_, err := engine.CreateTicket(ctx, "client@example.com", "Subject", "   ")
			Expect(apperrors.IsValidation(err)).To(BeTrue())
		})
	})

	Describe("Escalate", func() {
		It("should escalate a new ticket", func() {
			ticket, err := engine.CreateTicket(ctx, "client@example.com", "Question", "Something unusual")
			Expect(err).ToNot(HaveOccurred())

			escalated, err := engine.Escalate(ctx, ticket.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(escalated.Status).To(Equal(store.TicketStatusEscalated))
		})

		It("should escalate past an automatic suggestion", func() {
			ticket, err := engine.CreateTicket(ctx, "client@example.com", "Password trouble", "The password reset email never arrives")
			Expect(err).ToNot(HaveOccurred())
			Expect(ticket.Status).To(Equal(store.TicketStatusAutoSuggested))

			escalated, err := engine.Escalate(ctx, ticket.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(escalated.Status).To(Equal(store.TicketStatusEscalated))
		})

		It("should refuse to escalate twice", func() {
			ticket, err := engine.CreateTicket(ctx, "client@example.com", "Question", "Something unusual")
			Expect(err).ToNot(HaveOccurred())

			_, err = engine.Escalate(ctx, ticket.ID)
			Expect(err).ToNot(HaveOccurred())

			_, err = engine.Escalate(ctx, ticket.ID)
			Expect(apperrors.IsPrecondition(err)).To(BeTrue())
		})

		It("should return not found for an unknown ticket", func() {
			_, err := engine.Escalate(ctx, "missing")
			Expect(apperrors.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("Resolve", func() {
		It("should close a ticket with a resolution note", func() {
			ticket, err := engine.CreateTicket(ctx, "client@example.com", "Question", "Something unusual")
			Expect(err).ToNot(HaveOccurred())

			resolved, err := engine.Resolve(ctx, ticket.ID, "Walked the client through the report builder.")
			Expect(err).ToNot(HaveOccurred())
			Expect(resolved.Status).To(Equal(store.TicketStatusResolved))
			Expect(resolved.Resolution).ToNot(BeNil())
		})

		It("should require a resolution note", func() {
			ticket, err := engine.CreateTicket(ctx, "client@example.com", "Question", "Something unusual")
			Expect(err).ToNot(HaveOccurred())

			_, err = engine.Resolve(ctx, ticket.ID, "  ")
			Expect(apperrors.IsValidation(err)).To(BeTrue())
		})

		It("should treat resolved as terminal", func() {
			ticket, err := engine.CreateTicket(ctx, "client@example.com", "Question", "Something unusual")
			Expect(err).ToNot(HaveOccurred())

			_, err = engine.Resolve(ctx, ticket.ID, "Done")
			Expect(err).ToNot(HaveOccurred())

			_, err = engine.Resolve(ctx, ticket.ID, "Done again")
			Expect(apperrors.IsPrecondition(err)).To(BeTrue())

			_, err = engine.Escalate(ctx, ticket.ID)
			Expect(apperrors.IsPrecondition(err)).To(BeTrue())
		})
	})
})

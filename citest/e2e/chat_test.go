package e2e_test

import (
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opencode-ai/copilot/citest/testutil"
	"github.com/opencode-ai/copilot/internal/event"
	"github.com/opencode-ai/copilot/internal/provider"
	"github.com/opencode-ai/copilot/internal/server"
)

var _ = Describe("Chat Workflows", func() {
	var (
		owner       *testutil.TestClient
		workspaceID string
		sessionID   string
	)

	BeforeEach(func() {
		owner = testServer.Client("darksky")

		var err error
		workspaceID, err = owner.CreateWorkspace(ctx)
		Expect(err).NotTo(HaveOccurred())
		sessionID, err = owner.CreateSession(ctx, workspaceID, testutil.PromptName)
		Expect(err).NotTo(HaveOccurred())
	})

	It("chats in every mode against the same message", func() {
		messageID, err := owner.CreateMessage(ctx, sessionID, server.CreateMessageRequest{Content: "hi"})
		Expect(err).NotTo(HaveOccurred())

		resp, err := owner.ChatText(ctx, sessionID, messageID, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.String()).To(Equal(provider.TestText))

		resp, frames, err := owner.ChatStream(ctx, sessionID, messageID, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		var streamed strings.Builder
		for _, f := range frames {
			Expect(f.Event).To(Equal("message"))
			Expect(f.ID).To(Equal(messageID))
			streamed.WriteString(f.Data)
		}
		Expect(streamed.String()).To(Equal(provider.TestText))

		resp, frames, err = owner.ChatImages(ctx, sessionID, messageID, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(frames).To(Equal([]testutil.SSEFrame{{Event: "attachment", ID: messageID, Data: provider.TestAttachmentURL}}))

		histories, err := owner.Histories(ctx, workspaceID)
		Expect(err).NotTo(HaveOccurred())
		Expect(testutil.Contents(histories)).To(Equal([][]string{
			{"hi", provider.TestText, provider.TestText, ""},
		}))
		last := histories[0].Messages[3]
		Expect(last.Attachments).To(Equal([]string{provider.TestAttachmentURL}))
	})

	It("keeps conversations private to their owner", func() {
		guest := testServer.Client("guest")

		_, err := guest.Histories(ctx, workspaceID)
		Expect(err).To(MatchError(ContainSubstring("403")))

		inviteID, err := owner.Invite(ctx, workspaceID, "guest", "admin")
		Expect(err).NotTo(HaveOccurred())
		Expect(guest.AcceptInvite(ctx, workspaceID, inviteID)).To(Succeed())

		messageID, err := owner.CreateMessage(ctx, sessionID, server.CreateMessageRequest{Content: "secret"})
		Expect(err).NotTo(HaveOccurred())

		resp, err := guest.ChatText(ctx, sessionID, messageID, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		Expect(resp.ErrorCode()).To(Equal(server.ErrCodeForbidden))

		histories, err := guest.Histories(ctx, workspaceID)
		Expect(err).NotTo(HaveOccurred())
		Expect(histories).To(BeEmpty())
	})

	It("renders prompt variables from message params", func() {
		poemSession, err := owner.CreateSession(ctx, workspaceID, "poem")
		Expect(err).NotTo(HaveOccurred())
		messageID, err := owner.CreateMessage(ctx, poemSession, server.CreateMessageRequest{
			Content: "go",
			Params:  map[string]string{"word": "gophers"},
		})
		Expect(err).NotTo(HaveOccurred())

		resp, err := owner.ChatText(ctx, poemSession, messageID, provider.TestProviderID)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	It("publishes the owner's events", func() {
		events := testServer.SSEClient("darksky")
		Expect(events.Connect(ctx)).To(Succeed())
		defer events.Close()
		_, err := events.WaitForEvent("server.connected", 5*time.Second)
		Expect(err).NotTo(HaveOccurred())

		messageID, err := owner.CreateMessage(ctx, sessionID, server.CreateMessageRequest{Content: "hello"})
		Expect(err).NotTo(HaveOccurred())
		_, err = owner.ChatText(ctx, sessionID, messageID, "")
		Expect(err).NotTo(HaveOccurred())

		_, err = events.WaitForEvent(string(event.MessageSealed), 5*time.Second)
		Expect(err).NotTo(HaveOccurred())
		Expect(events.HasEventType(string(event.MessageCreated))).To(BeTrue())
	})

	Context("with a live provider", func() {
		BeforeEach(func() {
			if !testServer.HasLiveProvider() {
				Skip("ARK environment variables not set")
			}
		})

		It("streams a real completion", func() {
			messageID, err := owner.CreateMessage(ctx, sessionID, server.CreateMessageRequest{Content: "Reply with the single word: pong"})
			Expect(err).NotTo(HaveOccurred())

			resp, frames, err := owner.ChatStream(ctx, sessionID, messageID, "ark")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK), resp.String())
			Expect(frames).NotTo(BeEmpty())
			for _, f := range frames {
				Expect(f.Event).NotTo(Equal("error"), f.Data)
			}
		})
	})
})

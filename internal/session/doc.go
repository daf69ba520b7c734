// Package session implements the conversation core: sessions, their
// append-only message log, generation and per-user history reads.
//
// # Service
//
// Service owns sessions and messages:
//
//	svc := session.NewService(session.Options{
//		Store:   store,
//		Prompts: prompts,
//		Gateway: gateway,
//		Bus:     bus,
//	})
//
//	sess, err := svc.CreateSession(ctx, session.CreateSessionInput{
//		UserID:      "u1",
//		WorkspaceID: "ws",
//		PromptName:  "chat",
//	})
//	msg, err := svc.AppendMessage(ctx, session.AppendInput{
//		SessionID: sess.ID,
//		UserID:    "u1",
//		Role:      types.RoleUser,
//		Content:   "hi",
//	})
//
// Creating a session needs read access to the workspace. Only the session
// owner may append user messages; anyone else gets ErrForbidden.
//
// A PendingMessage holds streamed content in memory. Its ID is reserved when
// it is opened so its position does not move; Seal persists it and Discard
// drops it. History reads never see pending messages.
//
// # Processor
//
// Processor answers a user message:
//
//	proc := session.NewProcessor(svc, providers)
//	res, err := proc.Generate(ctx, session.GenerateInput{
//		SessionID: sess.ID,
//		UserID:    "u1",
//		MessageID: msg.ID,
//		Mode:      types.ModeTextStream,
//	})
//	for ev := range res.Events {
//		switch ev := ev.(type) {
//		case session.ChunkEvent:
//			fmt.Print(ev.Text)
//		case session.ErrorEvent:
//			return ev.Err
//		}
//	}
//
// Every call checks that the message belongs to the session and that the
// caller owns the session. The provider input is the session prompt rendered
// with the message params followed by the sealed history up to the message.
//
// A generation is all or nothing: a failed or cancelled stream discards its
// pending message. Provider failures surface as *GenerationError. Nothing is
// retried.
//
// # Histories
//
// ListHistories returns only the caller's own sessions, even when other
// members of the workspace have sessions in the same scope.
package session

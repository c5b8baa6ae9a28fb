/*
Package staffgate admits new staff to a chat-operated organization.

An applicant picks a role, shares a contact and waits. The superuser reviews
the request in a second, coupled conversation: accepts or rejects it, pins a
free document to new employees and names the member. Accepted applicants end
up on the staff list; rejected ones on the blacklist.

# Architecture

The membership engine (internal/membership) is a pair of finite state
machines driven by one transition table. It talks to the world only through
the ports in pkg/ports:

  - StateStore keeps one Conversation per identity (memory, file, Redis, BoltDB).
  - Directory holds staff, blacklist and roles (SQLite).
  - DocumentLister offers candidate files (a Loam folder).
  - Messenger delivers prompts (the Telegram Bot API, or a recorder).

Every step reads the conversation, checks the access gate, runs the matching
transition and writes the conversation back once. The "back" button restores
the last prompt from a versioned rollback point stored with the conversation.

# Usage

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	bot, err := telegram.New(cfg.TelegramToken)
	if err != nil {
		log.Fatal(err)
	}
	app, err := staffgate.New(ctx, cfg, bot)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	err = app.Engine.Handle(ctx, domain.Event{
		From: 42,
		Kind: domain.EventCommand,
		Data: domain.CommandStart,
	})
*/
package staffgate

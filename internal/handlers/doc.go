// Package handlers reacts to document writes.
//
// Each handler binds one document trigger: a path template
// (chats/{chatId}/messages/{messageId} and friends) plus a reaction that
// reads the store and dispatches push notifications. Handlers are
// stateless; missing preconditions (absent document, field or token) make
// a handler return nil without side effects.
package handlers

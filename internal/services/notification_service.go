package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"teamtasks/internal/models"
	"teamtasks/internal/repositories"
)

// Notifier is told about every successful assignment. It must never fail
// the caller.
type Notifier interface {
	TaskAssigned(ctx context.Context, task *models.Task, assignee *models.User)
}

// Publisher pushes inbox entries to live subscribers.
type Publisher interface {
	Publish(userID int64, evt models.NotificationEvent)
}

// NotificationDispatcher appends the in-app notification synchronously and
// sends the email (and Telegram mirror) on a detached goroutine whose result
// is only logged.
type NotificationDispatcher struct {
	users repositories.UserRepository
	email EmailService
	chat  ChatNotifier
	live  Publisher
	now   func() time.Time

	wg sync.WaitGroup
}

// NewNotificationDispatcher wires the dispatcher. chat and live may be nil.
func NewNotificationDispatcher(users repositories.UserRepository, email EmailService, chat ChatNotifier, live Publisher) *NotificationDispatcher {
	return &NotificationDispatcher{
		users: users,
		email: email,
		chat:  chat,
		live:  live,
		now:   time.Now,
	}
}

func assignmentNotification(task *models.Task, at time.Time) models.Notification {
	return models.Notification{
		Title:     models.NotificationTitleTaskAssigned,
		Message:   fmt.Sprintf("You have been assigned a new task: %s", task.Title),
		Link:      fmt.Sprintf("/tasks/%d", task.ID),
		Read:      false,
		CreatedAt: at,
	}
}

func (d *NotificationDispatcher) TaskAssigned(ctx context.Context, task *models.Task, assignee *models.User) {
	if task == nil || assignee == nil {
		return
	}
	// the inbox write must survive a client that hangs up early
	ctx = context.WithoutCancel(ctx)

	n := assignmentNotification(task, d.now())
	idx, err := d.users.AppendNotification(ctx, assignee.ID, n)
	if err != nil {
		log.Printf("[notify][inbox][err] user=%d task=%d: %v", assignee.ID, task.ID, err)
	} else if d.live != nil {
		d.live.Publish(assignee.ID, models.NotificationEvent{Index: idx, Notification: n})
	}

	to := *assignee
	t := *task
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[notify][panic] task=%d: %v", t.ID, r)
			}
		}()
		d.deliver(&to, &t)
	}()
}

func (d *NotificationDispatcher) deliver(to *models.User, task *models.Task) {
	if d.email != nil {
		if err := d.email.SendTaskAssigned(to, task); err != nil {
			log.Printf("[notify][email][err] to=%s task=%d: %v", to.Email, task.ID, err)
		} else {
			log.Printf("[notify][email][ok] to=%s task=%d", to.Email, task.ID)
		}
	}
	if d.chat != nil && to.TelegramChatID != 0 {
		if err := d.chat.SendMessage(to.TelegramChatID, formatTaskForChat(task)); err != nil {
			log.Printf("[notify][tg][err] user=%d task=%d: %v", to.ID, task.ID, err)
		}
	}
}

// Wait blocks until every detached delivery has finished.
func (d *NotificationDispatcher) Wait() {
	d.wg.Wait()
}

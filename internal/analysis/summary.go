package analysis

import (
	"fmt"
	"strings"
	"time"

	"deal_room/internal/domain"
)

const maxTopics = 5

const summaryFooter = "\n📝 RaftAI posted a summary to Note Points."

// Conversation - текстовые сообщения людей (не бота) начиная с since
func Conversation(messages []domain.Message, since time.Time) []domain.Message {
	var out []domain.Message
	for _, m := range messages {
		if m.Type != domain.MessageTypeText || m.SenderID == domain.BotUserID {
			continue
		}
		if m.Timestamp.Before(since) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// StartOfDay - локальная полночь для момента t
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Topics возвращает до пяти читаемых тем по ключевым словам и категории всей переписки
func (a *Analyzer) Topics(messages []domain.Message) []string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, m.Content)
	}
	lower := strings.ToLower(strings.Join(parts, " "))

	keys := a.Keywords(lower)
	keys = append(keys, a.category(lower, keys))

	labels := make(map[string]string, len(a.rules.Topics))
	for _, t := range a.rules.Topics {
		labels[t.Key] = t.Label
	}

	var topics []string
	seen := make(map[string]bool)
	for _, k := range keys {
		label, ok := labels[k]
		if !ok || seen[label] {
			continue
		}
		seen[label] = true
		topics = append(topics, label)
		if len(topics) == maxTopics {
			break
		}
	}
	return topics
}

func distinctSenders(messages []domain.Message) int {
	senders := make(map[string]bool)
	for _, m := range messages {
		senders[m.SenderID] = true
	}
	return len(senders)
}

// DailySummary - сводка за текущие сутки (с локальной полуночи now)
func (a *Analyzer) DailySummary(room *domain.DealRoom, now time.Time) string {
	since := StartOfDay(now)
	messages := Conversation(room.Messages, since)

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Daily Summary - %s\n\n", now.Format("Jan 2, 2006"))
	fmt.Fprintf(&b, "• %d messages exchanged\n", len(messages))
	fmt.Fprintf(&b, "• %d active participants\n", distinctSenders(messages))

	if len(messages) == 0 {
		b.WriteString("• No activity today\n\n")
		b.WriteString("💡 Tip: Start a conversation to begin tracking progress!")
		return b.String()
	}

	if topics := a.Topics(messages); len(topics) > 0 {
		fmt.Fprintf(&b, "• Key topics: %s\n", strings.Join(topics, ", "))
	}

	created := 0
	for _, n := range room.NotePoints {
		if !n.CreatedAt.Before(since) {
			created++
		}
	}
	if created > 0 {
		fmt.Fprintf(&b, "• %d note points created\n", created)
	}

	b.WriteString(summaryFooter)
	return b.String()
}

// WeeklySummary - сводка за последние 7 дней
func (a *Analyzer) WeeklySummary(room *domain.DealRoom, now time.Time) string {
	messages := Conversation(room.Messages, now.AddDate(0, 0, -7))

	var b strings.Builder
	b.WriteString("📈 Weekly Summary - Last 7 Days\n\n")
	fmt.Fprintf(&b, "• %d total messages\n", len(messages))
	fmt.Fprintf(&b, "• %d active participants\n", distinctSenders(messages))

	if len(messages) == 0 {
		b.WriteString("• No activity this week\n\n")
		b.WriteString("💡 Tip: Regular communication helps track progress!")
		return b.String()
	}

	done, open := 0, 0
	for _, n := range room.NotePoints {
		switch n.Status {
		case domain.NoteStatusDone:
			done++
		case domain.NoteStatusOpen:
			open++
		}
	}
	fmt.Fprintf(&b, "• %d completed note points\n", done)
	fmt.Fprintf(&b, "• %d open note points\n", open)

	day, count := mostActiveDay(messages, now.Location())
	fmt.Fprintf(&b, "• Most active day: %s (%d messages)\n", day, count)

	b.WriteString(summaryFooter)
	return b.String()
}

// mostActiveDay - при равенстве побеждает более поздний день
func mostActiveDay(messages []domain.Message, loc *time.Location) (string, int) {
	counts := make(map[string]int)
	var order []string
	for _, m := range messages {
		day := m.Timestamp.In(loc).Format("Jan 2, 2006")
		if _, ok := counts[day]; !ok {
			order = append(order, day)
		}
		counts[day]++
	}

	best, bestCount := "", 0
	for _, day := range order {
		if counts[day] >= bestCount {
			best, bestCount = day, counts[day]
		}
	}
	return best, bestCount
}

// CallSummary - текст сводки по завершенному звонку
func CallSummary(session *domain.CallSession) string {
	minutes, seconds := session.Duration/60, session.Duration%60

	var b strings.Builder
	fmt.Fprintf(&b, "Call Summary (%dm %ds):\n", minutes, seconds)
	fmt.Fprintf(&b, "• Participants: %d\n", len(session.Participants))
	fmt.Fprintf(&b, "• Duration: %d minutes %d seconds\n", minutes, seconds)
	fmt.Fprintf(&b, "• Type: %s call\n", CallTypeLabel(session.Type))
	b.WriteString("• Key discussion points and action items will be extracted and added to Note Points.\n")
	b.WriteString("\nRaftAI posted a summary to Note Points.")
	return b.String()
}

func CallTypeLabel(callType string) string {
	if callType == domain.CallTypeVideo {
		return "Video"
	}
	return "Voice"
}

// FormatCallTime форматирует секунды как m:ss
func FormatCallTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

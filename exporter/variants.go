package exporter

import "slightbackup/task"

var (
	Bookmarks = Table{
		ContentName: "bookmarks",
		Root:        "bookmarks",
		Element:     "bookmark",
		From:        "bookmarks",
		Columns:     []string{"title", "url", "visits", "date", "created", "bookmark"},
	}
	CallLog = Table{
		ContentName: "calllogs",
		Root:        "calls",
		Element:     "call",
		From:        "calls",
		Columns:     []string{"number", "date", "duration", "type", "name", "numbertype"},
	}
	Messages = Table{
		ContentName: "messages",
		Root:        "messages",
		Element:     "sms",
		From:        "sms",
		Columns:     []string{"thread_id", "address", "date", "read", "status", "type", "subject", "body"},
	}
	UserDictionary = Table{
		ContentName: "userdictionary",
		Root:        "words",
		Element:     "word",
		From:        "words",
		Columns:     []string{"word", "frequency", "locale", "appid"},
	}
)

// Variants maps every selector onto its table.
var Variants = map[task.Selector]Table{
	task.SelectorBookmarks:      Bookmarks,
	task.SelectorCallLog:        CallLog,
	task.SelectorMessages:       Messages,
	task.SelectorUserDictionary: UserDictionary,
}

// Register binds all variants to reg. Each task gets a fresh Exporter.
func Register(reg *task.Registry, db Queryer, guard Guard) error {
	for sel, table := range Variants {
		table := table
		err := reg.Register(sel, func(p task.Progress) task.Exporter {
			return New(table, db, guard, p)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

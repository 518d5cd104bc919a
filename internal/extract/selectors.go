package extract

// Selector lists are broad on purpose: Canvas, D2L, Blackboard, WeBWorK and
// similar platforms each mark up assignments differently.

var titleSelectors = []string{
	"h1",
	"h2",
	"h3",
	"[data-testid*='title']",
	"[class*='title' i]",
	"[class*='name' i]",
	"[class*='assignment' i] a",
	".assignment-title",
	".d2l-foldername",
	".ig-title",
	".name",
	".set_name",
	".problem-title",
}

var dueSelectors = []string{
	"[data-testid*='due']",
	"[class*='due' i]",
	"[id*='due' i]",
	"[aria-label*='due' i]",
	"[data-due-date]",
	"[data-duedate]",
	"[data-date]",
	"[datetime]",
	".due-date",
	".assignment-date-due",
	".dates",
	".d2l-dates-text",
	".set_due_date",
	".dueDate",
	"time",
}

// dueAttributes are read before the element text, in this order.
var dueAttributes = []string{
	"datetime",
	"data-due-date",
	"data-duedate",
	"data-date",
}

var candidateSelectors = []string{
	".assignment-card",
	"[data-automation-id*='todo' i] li",
	"[data-automation-id*='assignment' i] li",
	"[data-automation-id*='todo' i] [class*='card' i]",
	"li",
	"tr",
	"article",
	".assignment",
	"[class*='assignment' i]",
	"[class*='activity' i]",
	"[class*='homework' i]",
	"[class*='problem' i]",
	".list-item",
	".discussion-topic",
	".calendar_event",
	".todo-list-item",
	".setlist2 tr",
	".problem_set_table tr",
	".contentTable tr",
}

// Vendor card markup.
const (
	cardSelector      = ".assignment-card"
	cardTitleSelector = ".assignment-card__first-row-title"
	cardListSelector  = "[data-automation-id='assignment-list'], [data-automation-id*='todo' i], [data-automation-id*='assignment' i]"
)

var cardTitleSelectors = []string{
	cardTitleSelector,
	"[data-automation-id*='assignment-name' i]",
	"[class*='first-row-title' i]",
	"h3",
}

var cardDueSelectors = []string{
	".assignment-card__second-row",
	"[data-automation-id*='due' i]",
	"[class*='second-row' i]",
	"[class*='due' i]",
}

const fallbackTitleRunes = 180

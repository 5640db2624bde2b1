package runner

import (
	"github.com/roach88/scriptrunner/internal/script"
	"github.com/roach88/scriptrunner/internal/session"
)

// View is what a renderer needs: the search-filtered scripts and the
// editor state.
type View struct {
	Query   string
	Scripts []script.Script
	Total   int
	Session session.State
}

// CurrentView returns the view for query.
func (r *Runner) CurrentView(query string) View {
	r.mu.Lock()
	defer r.mu.Unlock()

	return View{
		Query:   query,
		Scripts: r.scripts.Search(query),
		Total:   r.scripts.Len(),
		Session: r.editor.State(),
	}
}

// Search returns the scripts whose titles contain every term of query.
func (r *Runner) Search(query string) []script.Script {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scripts.Search(query)
}

// Find returns the script with id.
func (r *Runner) Find(id string) (script.Script, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scripts.Find(id)
}

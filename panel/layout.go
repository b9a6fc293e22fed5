package panel

// action control names.  These are always present on a panel and do not
// derive from feature descriptors.
const (
	ActionStatus          = "Status"
	ActionSaveConfig      = "SaveConfiguration"
	ActionLoadConfig      = "LoadConfiguration"
	ActionSingleShot      = "SingleShot"
	ActionContinuousShot  = "ContinuousShot"
	ActionUserSetSelector = "UserSetSelector"
)

// actionOrder is the default rendering order of the action controls
var actionOrder = []string{
	ActionStatus,
	ActionUserSetSelector,
	ActionLoadConfig,
	ActionSaveConfig,
	ActionSingleShot,
	ActionContinuousShot,
}

/*resolveLayout arranges names into rows.

Explicit rows are kept intact when every member is known; a row naming
any unknown control is dropped whole, never partially rendered.  Names
in order that no explicit row mentions are appended as trailing
single-item rows, so the rendering order is total and stable.
*/
func resolveLayout(rows [][]string, known map[string]bool, order []string) [][]string {
	mentioned := map[string]bool{}
	out := make([][]string, 0, len(rows)+len(order))
	for _, row := range rows {
		keep := len(row) > 0
		for _, name := range row {
			mentioned[name] = true
			if !known[name] {
				keep = false
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	for _, name := range order {
		if !mentioned[name] {
			out = append(out, []string{name})
		}
	}
	return out
}

// FeatureRows returns the feature controls arranged per the configured
// layout
func (p *Panel) FeatureRows() [][]string {
	known := make(map[string]bool, len(p.controls))
	for name := range p.controls {
		known[name] = true
	}
	return resolveLayout(p.featLayout, known, p.order)
}

// ActionRows returns the action controls arranged per the configured
// layout.  The user set selector is omitted when a default user set was
// configured.
func (p *Panel) ActionRows() [][]string {
	order := make([]string, 0, len(actionOrder))
	known := map[string]bool{}
	for _, name := range actionOrder {
		if name == ActionUserSetSelector && p.DefaultUserSet != "" {
			continue
		}
		order = append(order, name)
		known[name] = true
	}
	return resolveLayout(p.actLayout, known, order)
}

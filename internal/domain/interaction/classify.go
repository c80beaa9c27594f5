package interaction

// selectMenuComponents are the component type codes the platform publishes
// for select menus: string, user, role, mentionable and channel selects.
// Buttons (2) and text inputs (4) are not in the set.
var selectMenuComponents = map[int]bool{
	ComponentStringSelect:      true,
	ComponentUserSelect:        true,
	ComponentRoleSelect:        true,
	ComponentMentionableSelect: true,
	ComponentChannelSelect:     true,
}

// Classify inspects a decoded payload and determines which handled kind it
// represents. The result is purely a function of the type code and, for
// message components, data.component_type.
func Classify(p *Payload) Kind {
	switch p.Type {
	case TypePing:
		return KindPing
	case TypeApplicationCommand:
		return KindCommand
	case TypeMessageComponent:
		if p.Data != nil && selectMenuComponents[p.Data.ComponentType] {
			return KindMenu
		}
		return KindButton
	case TypeAutocomplete, TypeModalSubmit:
		return KindUnsupported
	default:
		return KindUnrecognized
	}
}

// FirstValue returns the first selected value of a select-menu payload,
// or "" when nothing was selected.
func (p *Payload) FirstValue() string {
	if p.Data == nil || len(p.Data.Values) == 0 {
		return ""
	}
	return p.Data.Values[0]
}

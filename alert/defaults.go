package alert

var DefaultReportOptionNames = []string{
	"Threat",
	"Accident",
	"Medical Emergency",
	"Fire",
	"Natural Disaster",
}

// DefaultReportOptions are shown when the user has no report options yet
func DefaultReportOptions() []ReportOption {
	options := make([]ReportOption, 0, len(DefaultReportOptionNames))
	for _, name := range DefaultReportOptionNames {
		options = append(options, ReportOption{Name: name, Contacts: []string{}})
	}

	return options
}

// FindOption returns the option called 'name', if any
func FindOption(options []ReportOption, name string) (ReportOption, bool) {
	for _, option := range options {
		if option.Name == name {
			return option, true
		}
	}

	return ReportOption{}, false
}

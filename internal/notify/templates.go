package notify

import (
	"fmt"

	"github.com/retainly/retention-service/internal/domain"
)

// Template keys accepted by the dispatcher.
const (
	TemplateWeeklyDigest  = "weekly_digest"
	TemplateHighRiskAlert = "high_risk_alert"
	TemplateReactivation  = "reactivation_email"
)

// Template is one renderable notification body. Subject is only used by
// the email channel.
type Template struct {
	Subject string
	Body    string
}

var templates = map[string]map[domain.Channel]Template{
	TemplateWeeklyDigest: {
		domain.ChannelEmail: {
			Subject: "Weekly retention digest: {{highRiskCount}} accounts need attention",
			Body: "Hi,\n\nHere is this week's retention summary.\n\n" +
				"High risk accounts: {{highRiskCount}}\nMedium risk accounts: {{mediumRiskCount}}\n" +
				"Churn rate: {{churnRate}}%\nTop churn reason: {{topChurnReason}}\n\n" +
				"Review the full breakdown: {{dashboardUrl}}\n",
		},
		domain.ChannelChat: {
			Body: "Weekly retention digest: {{highRiskCount}} high risk, {{mediumRiskCount}} medium risk accounts. Churn rate {{churnRate}}%. Details: {{dashboardUrl}}",
		},
	},
	TemplateHighRiskAlert: {
		domain.ChannelEmail: {
			Subject: "High churn risk: {{userEmail}}",
			Body: "Account {{userEmail}} on the {{plan}} plan is at high churn risk (score {{churnScore}}).\n\n" +
				"Main driver: {{topFactor}}\nMonthly revenue at stake: ${{monthlyRevenue}}\n\n" +
				"Open the account: {{dashboardUrl}}\n",
		},
		domain.ChannelChat: {
			Body: ":rotating_light: {{userEmail}} ({{plan}}) hit high churn risk, score {{churnScore}}. Driver: {{topFactor}}. {{dashboardUrl}}",
		},
	},
	TemplateReactivation: {
		domain.ChannelEmail: {
			Subject: "We miss you, {{userEmail}}",
			Body: "Hi,\n\nWe noticed you have not been around since {{lastLoginDate}}.\n\n" +
				"A lot has shipped since then. Log back in and take a look: {{dashboardUrl}}\n\n" +
				"If something is not working for you, just reply to this email.\n",
		},
	},
}

// LookupTemplate resolves a template for a channel. Unknown keys and
// channels a template does not support return domain.ErrNotFound.
func LookupTemplate(key string, channel domain.Channel) (Template, error) {
	byChannel, ok := templates[key]
	if !ok {
		return Template{}, fmt.Errorf("template %q: %w", key, domain.ErrNotFound)
	}
	tpl, ok := byChannel[channel]
	if !ok {
		return Template{}, fmt.Errorf("template %q has no %s variant: %w", key, channel, domain.ErrNotFound)
	}
	return tpl, nil
}

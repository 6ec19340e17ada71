package dispatch

import "fmt"

const (
	msgGreeting     = "Hello! Please tell me your child's sex, age, height and weight."
	msgNextData     = "Please tell me the next measurement. (e.g. 12 months 75cm 9.8kg)"
	msgNeedMoreData = "Got it. One more past record is needed for an accurate analysis. (e.g. 12 months 75cm 9.8kg)"
	msgReady        = "Added. Add more past records, or say 'analyze' to see the growth report."
	msgReset        = "OK, starting over. Please tell me about your child."
	chartTitle      = "Growth analysis"
	chartRestart    = "Start over"
)

func reportSummary(records int) string {
	return fmt.Sprintf("Analyzed %d growth records.\nThe 12-month projection is shown as a dashed line.", records)
}

package keyword

var (
	RegistrationsMetricName      = "invocation_counter_registrations"
	QueriesMetricName            = "invocation_counter_queries"
	TrackedKeysMetricName        = "invocation_counter_tracked_keys"
	TotalHttpRequestsMetricName  = "invocation_counter_http_requests"
	TotalHttpResponsesMetricName = "invocation_counter_http_responses"
	HttpResponseTimeMsMetricName = "invocation_counter_http_response_time_ms"
)

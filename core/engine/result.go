package engine

// AcceptanceResult aggregates the counters of one acceptance pass.
type AcceptanceResult struct {
	Processed int `json:"processed"`
	Accepted  int `json:"accepted"`
	Rejected  int `json:"rejected"`
	Pending   int `json:"pending"`
	Errors    int `json:"errors"`
}

func (r AcceptanceResult) outcomes() map[string]int {
	return map[string]int{
		"processed": r.Processed,
		"accepted":  r.Accepted,
		"rejected":  r.Rejected,
		"pending":   r.Pending,
		"errors":    r.Errors,
	}
}

// AssignmentResult aggregates the counters of one assignment pass.
type AssignmentResult struct {
	Processed int `json:"processed"`
	Assigned  int `json:"assigned"`
	Pending   int `json:"pending"`
	Errors    int `json:"errors"`
}

func (r AssignmentResult) outcomes() map[string]int {
	return map[string]int{
		"processed": r.Processed,
		"assigned":  r.Assigned,
		"pending":   r.Pending,
		"errors":    r.Errors,
	}
}

// ArrivalResult aggregates the counters of one arrival-detection pass.
type ArrivalResult struct {
	Processed        int `json:"processed"`
	PickupArrivals   int `json:"pickup_arrivals"`
	DeliveryArrivals int `json:"delivery_arrivals"`
	Errors           int `json:"errors"`
}

func (r ArrivalResult) outcomes() map[string]int {
	return map[string]int{
		"processed":         r.Processed,
		"pickup_arrivals":   r.PickupArrivals,
		"delivery_arrivals": r.DeliveryArrivals,
		"errors":            r.Errors,
	}
}

// ETAResult aggregates the counters of one ETA recalculation pass.
type ETAResult struct {
	Processed int `json:"processed"`
	Updated   int `json:"updated"`
	Alerts    int `json:"alerts"`
	Errors    int `json:"errors"`
}

func (r ETAResult) outcomes() map[string]int {
	return map[string]int{
		"processed": r.Processed,
		"updated":   r.Updated,
		"alerts":    r.Alerts,
		"errors":    r.Errors,
	}
}

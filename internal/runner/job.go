package runner

import "encoding/json"

// Job is one simulation job pulled off the queue.
type Job struct {
	RunID            string `json:"run_id"`
	Type             string `json:"type"`
	SimulationID     string `json:"simulation_id"`
	ApplicationID    string `json:"application_id,omitempty"`
	CandidateCode    string `json:"candidate_code"`
	CandidateWriteup string `json:"candidate_writeup"`
}

// parseJob decodes a queue payload into a Job.
func parseJob(data []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

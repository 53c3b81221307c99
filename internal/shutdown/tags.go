package shutdown

// FlattenTags converts tag pairs into a map. Pairs with a missing or empty
// key, or a missing value, are dropped. Later duplicates overwrite earlier ones.
func FlattenTags(tags []Tag) map[string]string {
	out := make(map[string]string, len(tags))
	for _, t := range tags {
		if t.Key == nil || *t.Key == "" || t.Value == nil {
			continue
		}
		out[*t.Key] = *t.Value
	}
	return out
}

// InstanceIDs returns the ids of instances in order.
func InstanceIDs(instances []Instance) []string {
	ids := make([]string, 0, len(instances))
	for _, inst := range instances {
		ids = append(ids, inst.ID)
	}
	return ids
}

// BuildLogEntries creates one entry per instance sharing executionID and timestamp.
func BuildLogEntries(executionID string, timestamp int64, instances []Instance) []LogEntry {
	entries := make([]LogEntry, 0, len(instances))
	for _, inst := range instances {
		entries = append(entries, LogEntry{
			ExecutionID:       executionID,
			InstanceID:        inst.ID,
			ShutdownTimestamp: timestamp,
			Tags:              FlattenTags(inst.Tags),
		})
	}
	return entries
}

package audit

// Reconcile merges a locally held view with a freshly fetched remote view of
// the same meeting. The later UpdatedAt wins and ties favor remote. The result
// never aliases either input's report.
func Reconcile(local, remote Record) Record {
	if local.UpdatedAt.After(remote.UpdatedAt) {
		return local.Clone()
	}
	return remote.Clone()
}

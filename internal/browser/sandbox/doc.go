/*
Package sandbox provides a headless stand-in for the browser host.

Each navigable context gets a Page backed by its own goja runtime and a small
document model: head, documentElement, createElement, appendChild and a
script[src="..."] querySelector. Executing an injection batch therefore
records exactly which script elements the page would have loaded, in order,
along with any config the batch published on window.__AIPLUGS_CONFIG__.

Headless implements both navigation.Views and navigation.Sink, which lets the
replay command run the real hub, scheduler and matcher client without Chrome.

# Usage Example

	host := sandbox.New(sandbox.DefaultConfig(), logger)
	hub := navigation.NewHub(host, host, client, scheduler)

	host.Apply(ev)
	hub.Dispatch(ev)

	for _, page := range host.Summary() {
		fmt.Println(page.ID, page.Scripts)
	}
*/
package sandbox

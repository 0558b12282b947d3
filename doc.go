/*
Package ddnsd keeps a DNS record pointed at the current public address of the host.

Usage will always start with [ddnsd.New],
which returns a [Client] for one domain.
New requires the domain name which will be updated and a [Provider] for the DNS authority,
registered with an option such as [UsingCloudflare] or [UsingProvider].
Additional client configuration options are listed in the docs for New.

Each cycle resolves the current address for every enabled [Family],
compares it with the [Cache],
and only calls the provider when the address changed.
The cache is persisted after each successful update and never after a failed one.
*/
package ddnsd

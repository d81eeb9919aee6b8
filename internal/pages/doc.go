// Package pages holds the access point's HTML pages and the placeholder
// renderer that fills them in.
//
// Templates are plain HTML with ${name} tokens. The status page uses:
//
//	${rootWebTitle}     page title (static)
//	${hostName}         device hostname (static)
//	${firmwareVersion}  build version (static)
//	${chipId}           host identifier (read per request)
//	${coreVersion}      kernel and Go runtime version (read per request)
//	${cpuFreq}          CPU frequency in MHz (read per request)
//	${freeHeap}         free Go heap in bytes (read per request)
//
// Unknown tokens are left in place. Metrics that cannot be read render as
// "unknown".
package pages

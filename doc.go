// Package motiongov governs animation execution quality in heavily
// animated client UIs.
//
// Core Philosophy: "Less motion, never a crash. Degrade gracefully."
//
// The governor keeps perceived frame rate acceptable by admitting,
// throttling, or evicting concurrently requested animations and
// GPU-composited layers based on continuously measured rendering
// performance:
//
//   - FrameSampler measures per-frame timing on a frame-clock loop and
//     derives a PerformanceState every sampling window.
//   - AdmissionRegistry admits or refuses animation requests by priority
//     under capacity and degraded-performance conditions.
//   - LayerManager promotes elements to GPU-composited layers under a
//     hard ceiling with lowest-priority eviction.
//   - ObserverPool shares viewport-intersection observers across callers,
//     one native observer per distinct option set.
//   - BatchScheduler coalesces independent before-paint callbacks into a
//     single frame tick.
//   - ParamPool recycles small animation-parameter records.
//
// Usage:
//
//	gov := motiongov.New(motiongov.DefaultConfig())
//	defer gov.Close()
//	go gov.Run(ctx)
//
//	if gov.Register("hero-fade", motiongov.PriorityStandard) {
//		// run the animation, then gov.Unregister("hero-fade")
//	}
//
// Refusal is never an error: callers branch on the boolean and render an
// unanimated fallback. Misuse (double unregister, disabling a layer that
// was never enabled, malformed observer options) is absorbed as a no-op,
// since UI components unmount in unpredictable orders.
package motiongov

// Package provisioning runs the idempotent install pipeline.
//
// # Core Types
//
// Target describes the application instance being provisioned: recipe,
// domains, variant, user, install directory and secrets. Context carries the
// Target together with settings, the Host, an Observer and the accumulated
// State. Step defines one pipeline stage with Name() and Provision(). Steps
// run in order through RunSteps and stop at the first failure, except soft
// failures which are recorded as warnings.
//
// Every resource a step touches is reported through Context.Created,
// Context.Exists, Context.Updated or Context.Skipped, which emit an Event
// and record the outcome in State.
//
// The steps themselves live in the steps subpackage.
package provisioning

package sqlinline

// QConsumeGuestCredit increments the guest counter only while it is below
// the limit. No returned row means the limit was already reached.
const QConsumeGuestCredit = `--sql 6980f361-7d44-425d-bb26-fd22cfb9afe7
insert into guest_usage as g (fingerprint, period_start, used, created_at, updated_at)
select $1::text, $2::date, 1, now(), now()
where $3::int > 0
on conflict (fingerprint, period_start) do update
set used       = g.used + 1,
    updated_at = now()
where g.used < $3::int
returning g.used;
`

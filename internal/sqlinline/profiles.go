package sqlinline

const profileColumns = `id::text, email, role, credits_balance, free_credits_used, free_period_start, created_at, updated_at`

const QSelectProfileByEmail = `--sql 49903fe7-d31d-43ab-adf2-cfa7494def5b
select ` + profileColumns + `
from profiles
where email = $1::text
limit 1;
`

const QSelectProfileByID = `--sql b68ee680-c860-4850-89c1-a3b6539cd1d3
select ` + profileColumns + `
from profiles
where id = $1::uuid
limit 1;
`

// QInsertProfile returns the existing row when another request created the
// same email first; the no-op update makes RETURNING yield it.
const QInsertProfile = `--sql bf207724-0375-49a6-a98c-be99f0d8534c
insert into profiles (id, email, role, credits_balance, free_credits_used, free_period_start, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, $3::int, $4::int, $5::date, now(), now())
on conflict (email) do update set email = excluded.email
returning ` + profileColumns + `;
`

const QUpdateProfile = `--sql 0d893690-9345-4e6a-8b71-8cdcbc3912d7
update profiles
set role              = coalesce($2::text, role),
    credits_balance   = coalesce($3::int, credits_balance),
    free_credits_used = coalesce($4::int, free_credits_used),
    free_period_start = coalesce($5::date, free_period_start),
    updated_at        = now()
where email = $1::text
returning ` + profileColumns + `;
`

const QApplyDebit = `--sql 8455b1f4-14ca-47da-9944-49a2578a9940
update profiles
set credits_balance   = greatest(credits_balance - $2::int, 0),
    free_credits_used = greatest(free_credits_used, least(free_credits_used + $3::int, $4::int)),
    updated_at        = now()
where email = $1::text
returning ` + profileColumns + `;
`

const QAddCredits = `--sql 18202e20-bed7-4c6b-a465-5c0feabb3efd
update profiles
set credits_balance = credits_balance + $2::int,
    updated_at      = now()
where id = $1::uuid
returning ` + profileColumns + `;
`
